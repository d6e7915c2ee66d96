package ticket

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/emisoft/buzon/core"
)

var (
	// errors
	ErrNotFound         = errors.New("ticket not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category is still referenced by tickets")
)

const recentLimit = 10

type (
	Repository interface {
		CreateTicket(ctx context.Context, tkt Ticket) (Ticket, error)
		GetTicketByID(ctx context.Context, id uuid.UUID) (Ticket, error)
		// FilterTickets applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Subject or Description.
		// Results are ordered by creation time descending.
		FilterTickets(ctx context.Context, filter QueryFilter) ([]Ticket, error)
		UpdateTicket(ctx context.Context, tkt Ticket) (Ticket, error)
		UpdateTicketStatuses(ctx context.Context, status Status, ids ...uuid.UUID) error
		// CountTicketsByStatus excludes rejected tickets.
		CountTicketsByStatus(ctx context.Context) (map[Status]int, error)
		// RecentTickets returns the most recently created non-rejected
		// tickets, creation time descending.
		RecentTickets(ctx context.Context, limit int) ([]Ticket, error)

		CreateCategory(ctx context.Context, cat Category) (Category, error)
		GetCategoryByID(ctx context.Context, id int) (Category, error)
		QueryAllCategories(ctx context.Context) ([]Category, error)
		UpdateCategory(ctx context.Context, cat Category) (Category, error)
		// DeleteCategory returns ErrCategoryInUse while tickets reference it.
		DeleteCategory(ctx context.Context, id int) error
	}

	// EvidenceStore persists uploaded evidence photos and returns a stable
	// object key.
	EvidenceStore interface {
		UploadEvidence(ctx context.Context, content []byte, filename string) (string, error)
		EvidenceURL(key string) string
	}

	Service struct {
		repo       Repository
		mailSvc    core.EmailService
		classifier *Classifier
		logger     core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, classifier *Classifier, logger core.Logger) *Service {
	return &Service{
		repo:       repo,
		mailSvc:    mailSvc,
		classifier: classifier,
		logger:     logger,
	}
}

// Create validates and persists a submission under the given (already
// verified) identifier, then runs the classifier/notifier pipeline.
// Notification outcome never affects the submission result.
func (svc *Service) Create(ctx context.Context, identifier string, nt NewTicket) (Ticket, error) {
	if err := nt.Validate(); err != nil {
		return Ticket{}, err
	}

	cat, err := svc.repo.GetCategoryByID(ctx, nt.CategoryID)
	if err != nil {
		if err == ErrCategoryNotFound {
			return Ticket{}, core.NewValidationError(err, core.FieldError{Field: "category_id", Error: err.Error()})
		}
		return Ticket{}, err
	}

	if identifier == "" {
		identifier = AnonymousIdentifier
	}

	now := time.Now().UTC()
	tkt := Ticket{
		ID:            uuid.New(),
		SubmitterHash: AnonymousHash(identifier),
		CategoryID:    cat.ID,
		CategoryName:  cat.Name,
		Subject:       nt.Subject,
		Description:   nt.Description,
		EvidenceKey:   nt.EvidenceKey,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tkt, err = svc.repo.CreateTicket(ctx, tkt)
	if err != nil {
		return Ticket{}, err
	}

	svc.dispatchAlerts(tkt, cat)
	return tkt, nil
}

// dispatchAlerts runs the keyword classifier and queues one notification per
// tripped set, addressed to the category's responsible email with the
// operator address as fallback. Best-effort by design.
func (svc *Service) dispatchAlerts(tkt Ticket, cat Category) {
	res := svc.classifier.Classify(tkt.Subject, tkt.Description)
	if !res.Critical && !res.Spam {
		return
	}

	recipient := cat.ResponsibleEmail
	if recipient == "" {
		recipient = core.Conf.OperatorEmail
	}
	to := []mail.Address{{Address: recipient}}

	var messages []*core.EmailMessage
	if res.Critical {
		svc.logger.Warn(fmt.Sprintf("alert detected on ticket %s: notifying %s", tkt.ID, recipient))
		messages = append(messages, &core.EmailMessage{
			To:           to,
			Subject:      fmt.Sprintf("ALERTA URGENTE: %s - %s", cat.Name, tkt.Subject),
			TemplateName: "alerta",
			TemplateData: map[string]interface{}{
				"Category":    cat.Name,
				"Description": tkt.Description,
			},
		})
	}
	if res.Spam {
		messages = append(messages, &core.EmailMessage{
			To:           to,
			Subject:      fmt.Sprintf("Posible spam: %s - %s", cat.Name, tkt.Subject),
			TemplateName: "spam",
			TemplateData: map[string]interface{}{
				"Category":    cat.Name,
				"Subject":     tkt.Subject,
				"Description": tkt.Description,
			},
		})
	}
	svc.mailSvc.SendMessages(messages...)
}

func (svc *Service) GetByID(ctx context.Context, id uuid.UUID) (Ticket, error) {
	return svc.repo.GetTicketByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Ticket, error) {
	filter.Clean()
	return svc.repo.FilterTickets(ctx, filter)
}

// Update applies staff changes (status, internal notes) to a Ticket.
func (svc *Service) Update(ctx context.Context, id uuid.UUID, ut UpdateTicket) (Ticket, error) {
	if err := ut.Validate(); err != nil {
		return Ticket{}, err
	}

	tkt, err := svc.repo.GetTicketByID(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if ut.Status != "" {
		tkt.Status = ut.Status
	}
	if ut.AdminNotes != nil {
		tkt.AdminNotes = *ut.AdminNotes
	}
	tkt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTicket(ctx, tkt)
}

// MarkResolved and MarkInProgress mirror the bulk panel actions.
func (svc *Service) MarkResolved(ctx context.Context, ids ...uuid.UUID) error {
	return svc.repo.UpdateTicketStatuses(ctx, StatusResolved, ids...)
}

func (svc *Service) MarkInProgress(ctx context.Context, ids ...uuid.UUID) error {
	return svc.repo.UpdateTicketStatuses(ctx, StatusInProgress, ids...)
}

// Stats computes the public dashboard aggregates over all non-rejected
// tickets. Safe on an empty ticket set.
func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := svc.repo.CountTicketsByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}
	recent, err := svc.repo.RecentTickets(ctx, recentLimit)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Resolved:   counts[StatusResolved],
		InProgress: counts[StatusInProgress],
		Pending:    counts[StatusPending],
		Recent:     make([]PublicTicket, 0, len(recent)),
	}
	stats.Total = stats.Resolved + stats.InProgress + stats.Pending
	for _, tkt := range recent {
		stats.Recent = append(stats.Recent, tkt.public())
	}
	return stats, nil
}

// Categories

func (svc *Service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	if err := nc.Validate(); err != nil {
		return Category{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateCategory(ctx, Category{
		Name:             nc.Name,
		Description:      nc.Description,
		ResponsibleEmail: nc.ResponsibleEmail,
		BasePriority:     nc.BasePriority,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *Service) GetCategoryByID(ctx context.Context, id int) (Category, error) {
	return svc.repo.GetCategoryByID(ctx, id)
}

func (svc *Service) QueryCategories(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryAllCategories(ctx)
}

func (svc *Service) UpdateCategory(ctx context.Context, id int, nc NewCategory) (Category, error) {
	if err := nc.Validate(); err != nil {
		return Category{}, err
	}
	cat, err := svc.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return Category{}, err
	}
	cat.Name = nc.Name
	cat.Description = nc.Description
	cat.ResponsibleEmail = nc.ResponsibleEmail
	cat.BasePriority = nc.BasePriority
	cat.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCategory(ctx, cat)
}

// DeleteCategory refuses to delete while tickets reference the category;
// the rejection comes from the storage layer.
func (svc *Service) DeleteCategory(ctx context.Context, id int) error {
	return svc.repo.DeleteCategory(ctx, id)
}
