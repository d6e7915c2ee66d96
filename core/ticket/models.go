package ticket

import (
	"time"

	"github.com/google/uuid"

	"github.com/emisoft/buzon/core"
)

// Status of a Ticket. The short codes are the stored representation.
type Status string

const (
	StatusPending    Status = "PEND"
	StatusInProgress Status = "PROC"
	StatusResolved   Status = "RES"
	StatusRejected   Status = "RECH"
)

var statusDisplays = map[Status]string{
	StatusPending:    "Pendiente",
	StatusInProgress: "En Proceso",
	StatusResolved:   "Resuelto",
	StatusRejected:   "Rechazado/Spam",
}

func (s Status) Display() string {
	if d, ok := statusDisplays[s]; ok {
		return d
	}
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := statusDisplays[s]
	return ok
}

// Category is a classification bucket with an assigned responsible recipient.
type Category struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	ResponsibleEmail string    `json:"responsible_email"`
	BasePriority     int       `json:"base_priority"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// Ticket is a single submitted complaint/report record. The submitter is
// only ever stored as a one-way hash; records cannot be traced back to a
// student identity.
type Ticket struct {
	ID            uuid.UUID `json:"id"`
	SubmitterHash string    `json:"submitter_hash"`
	CategoryID    int       `json:"category_id"`
	CategoryName  string    `json:"category_name,omitempty"`
	Subject       string    `json:"subject"`
	Description   string    `json:"description"`
	EvidenceKey   string    `json:"evidence_key,omitempty"` // object key in the evidence bucket; empty when no photo
	Status        Status    `json:"status"`
	AdminNotes    string    `json:"admin_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func (t Ticket) HasEvidence() bool { return t.EvidenceKey != "" }

// NewTicket contains information needed to submit a new Ticket.
type NewTicket struct {
	CategoryID  int    `json:"category_id" form:"category_id" validate:"required"`
	Subject     string `json:"subject" form:"subject" validate:"required,max=200"`
	Description string `json:"description" form:"description" validate:"required"`
	EvidenceKey string `json:"-" form:"-"` // set after a successful upload, never bound from the form
}

func (nt *NewTicket) Validate() error {
	nt.Subject = core.CleanString(nt.Subject)
	nt.Description = core.CleanString(nt.Description)
	return core.Validate.Struct(nt)
}

// UpdateTicket defines what staff may change on an existing Ticket.
type UpdateTicket struct {
	Status     Status  `json:"status" validate:"omitempty,oneof=PEND PROC RES RECH"`
	AdminNotes *string `json:"admin_notes"`
}

func (ut *UpdateTicket) Validate() error {
	if ut.AdminNotes != nil {
		notes := core.CleanString(*ut.AdminNotes)
		ut.AdminNotes = &notes
	}
	return core.Validate.Struct(ut)
}

// NewCategory contains information needed to create a Category.
type NewCategory struct {
	Name             string `json:"name" validate:"required,max=100"`
	Description      string `json:"description"`
	ResponsibleEmail string `json:"responsible_email" validate:"omitempty,email"`
	BasePriority     int    `json:"base_priority" validate:"omitempty,min=1"`
}

func (nc *NewCategory) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.ResponsibleEmail = core.CleanString(nc.ResponsibleEmail, true /* lower */)
	if nc.BasePriority == 0 {
		nc.BasePriority = 1
	}
	return core.Validate.Struct(nc)
}

// QueryFilter narrows staff ticket listings and exports.
type QueryFilter struct {
	Status      Status    `query:"status"`
	CategoryID  int       `query:"category_id"`
	Search      string    `query:"search"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.CategoryID == 0 && qf.Search == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Stats is the public transparency dashboard payload. Rejected tickets are
// excluded from every figure.
type Stats struct {
	Total      int            `json:"total"`
	Resolved   int            `json:"resolved"`
	InProgress int            `json:"in_progress"`
	Pending    int            `json:"pending"`
	Recent     []PublicTicket `json:"recent"`
}

// PublicTicket is the redacted view shown on the public dashboard.
type PublicTicket struct {
	ID           uuid.UUID `json:"id"`
	CategoryName string    `json:"category_name"`
	Subject      string    `json:"subject"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func (t Ticket) public() PublicTicket {
	return PublicTicket{
		ID:           t.ID,
		CategoryName: t.CategoryName,
		Subject:      t.Subject,
		Status:       t.Status.Display(),
		CreatedAt:    t.CreatedAt,
	}
}
