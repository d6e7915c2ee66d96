package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/emisoft/buzon/core/ticket"
)

const fkViolation = "23503"

type ticketRepository struct {
	db *sqlx.DB
}

var _ ticket.Repository = (*ticketRepository)(nil) // interface compliance check

func NewTicketRepository(db *sql.DB) ticket.Repository {
	return &ticketRepository{db: sqlx.NewDb(db, "postgres")}
}

type (
	ticketRow struct {
		ID            uuid.UUID   `db:"id"`
		SubmitterHash string      `db:"submitter_hash"`
		CategoryID    int         `db:"category_id"`
		CategoryName  null.String `db:"category_name"`
		Subject       string      `db:"subject"`
		Description   string      `db:"description"`
		EvidenceKey   null.String `db:"evidence_key"`
		Status        string      `db:"status"`
		AdminNotes    null.String `db:"admin_notes"`
		CreatedAt     null.Time   `db:"created_at"`
		UpdatedAt     null.Time   `db:"updated_at"`
	}

	categoryRow struct {
		ID               int       `db:"id"`
		Name             string    `db:"name"`
		Description      string    `db:"description"`
		ResponsibleEmail string    `db:"responsible_email"`
		BasePriority     int       `db:"base_priority"`
		CreatedAt        null.Time `db:"created_at"`
		UpdatedAt        null.Time `db:"updated_at"`
	}
)

func (r ticketRow) ticket() ticket.Ticket {
	return ticket.Ticket{
		ID:            r.ID,
		SubmitterHash: r.SubmitterHash,
		CategoryID:    r.CategoryID,
		CategoryName:  r.CategoryName.String,
		Subject:       r.Subject,
		Description:   r.Description,
		EvidenceKey:   r.EvidenceKey.String,
		Status:        ticket.Status(r.Status),
		AdminNotes:    r.AdminNotes.String,
		CreatedAt:     r.CreatedAt.Time,
		UpdatedAt:     r.UpdatedAt.Time,
	}
}

func (r categoryRow) category() ticket.Category {
	return ticket.Category{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		ResponsibleEmail: r.ResponsibleEmail,
		BasePriority:     r.BasePriority,
		CreatedAt:        r.CreatedAt.Time,
		UpdatedAt:        r.UpdatedAt.Time,
	}
}

const selectTicket = `
SELECT t.id, t.submitter_hash, t.category_id, c.name AS category_name, t.subject,
       t.description, t.evidence_key, t.status, t.admin_notes, t.created_at, t.updated_at
FROM ticket t
JOIN category c ON c.id = t.category_id`

func (repo *ticketRepository) CreateTicket(ctx context.Context, tkt ticket.Ticket) (ticket.Ticket, error) {
	const q = `
INSERT INTO ticket (id, submitter_hash, category_id, subject, description, evidence_key, status, admin_notes, created_at, updated_at)
VALUES (:id, :submitter_hash, :category_id, :subject, :description, :evidence_key, :status, :admin_notes, :created_at, :updated_at)`
	row := ticketRow{
		ID:            tkt.ID,
		SubmitterHash: tkt.SubmitterHash,
		CategoryID:    tkt.CategoryID,
		Subject:       tkt.Subject,
		Description:   tkt.Description,
		EvidenceKey:   null.NewString(tkt.EvidenceKey, tkt.EvidenceKey != ""),
		Status:        string(tkt.Status),
		AdminNotes:    null.NewString(tkt.AdminNotes, tkt.AdminNotes != ""),
		CreatedAt:     null.TimeFrom(tkt.CreatedAt),
		UpdatedAt:     null.TimeFrom(tkt.UpdatedAt),
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return ticket.Ticket{}, wrapErr(err, "creating ticket")
	}
	return tkt, nil
}

func (repo *ticketRepository) GetTicketByID(ctx context.Context, id uuid.UUID) (ticket.Ticket, error) {
	var row ticketRow
	if err := repo.db.GetContext(ctx, &row, selectTicket+" WHERE t.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return ticket.Ticket{}, ticket.ErrNotFound
		}
		return ticket.Ticket{}, wrapErr(err, "getting ticket")
	}
	return row.ticket(), nil
}

func (repo *ticketRepository) FilterTickets(ctx context.Context, filter ticket.QueryFilter) ([]ticket.Ticket, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "t.status = "+arg(string(filter.Status)))
	}
	if filter.CategoryID != 0 {
		conds = append(conds, "t.category_id = "+arg(filter.CategoryID))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(t.subject ILIKE %s OR t.description ILIKE %s)", p, p))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "t.created_at >= "+arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "t.created_at <= "+arg(filter.CreatedTo.UTC()))
	}

	q := selectTicket
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY t.created_at DESC"

	var rows []ticketRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrapErr(err, "filtering tickets")
	}
	tkts := make([]ticket.Ticket, 0, len(rows))
	for _, row := range rows {
		tkts = append(tkts, row.ticket())
	}
	return tkts, nil
}

func (repo *ticketRepository) UpdateTicket(ctx context.Context, tkt ticket.Ticket) (ticket.Ticket, error) {
	const q = `
UPDATE ticket
SET status = :status, admin_notes = :admin_notes, updated_at = :updated_at
WHERE id = :id`
	row := ticketRow{
		ID:         tkt.ID,
		Status:     string(tkt.Status),
		AdminNotes: null.NewString(tkt.AdminNotes, tkt.AdminNotes != ""),
		UpdatedAt:  null.TimeFrom(tkt.UpdatedAt),
	}
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return ticket.Ticket{}, wrapErr(err, "updating ticket")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	return tkt, nil
}

func (repo *ticketRepository) UpdateTicketStatuses(ctx context.Context, status ticket.Status, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE ticket SET status = $1, updated_at = now() WHERE id = ANY($2)`
	if _, err := repo.db.ExecContext(ctx, q, string(status), pq.Array(ids)); err != nil {
		return wrapErr(err, "updating ticket statuses")
	}
	return nil
}

func (repo *ticketRepository) CountTicketsByStatus(ctx context.Context) (map[ticket.Status]int, error) {
	const q = `SELECT status, COUNT(*) AS count FROM ticket WHERE status != $1 GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}{}
	if err := repo.db.SelectContext(ctx, &rows, q, string(ticket.StatusRejected)); err != nil {
		return nil, wrapErr(err, "counting tickets")
	}
	counts := make(map[ticket.Status]int, len(rows))
	for _, row := range rows {
		counts[ticket.Status(row.Status)] = row.Count
	}
	return counts, nil
}

func (repo *ticketRepository) RecentTickets(ctx context.Context, limit int) ([]ticket.Ticket, error) {
	q := selectTicket + " WHERE t.status != $1 ORDER BY t.created_at DESC LIMIT $2"
	var rows []ticketRow
	if err := repo.db.SelectContext(ctx, &rows, q, string(ticket.StatusRejected), limit); err != nil {
		return nil, wrapErr(err, "getting recent tickets")
	}
	tkts := make([]ticket.Ticket, 0, len(rows))
	for _, row := range rows {
		tkts = append(tkts, row.ticket())
	}
	return tkts, nil
}

func (repo *ticketRepository) CreateCategory(ctx context.Context, cat ticket.Category) (ticket.Category, error) {
	const q = `
INSERT INTO category (name, description, responsible_email, base_priority, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	var id int
	err := repo.db.QueryRowxContext(ctx, q,
		cat.Name, cat.Description, cat.ResponsibleEmail, cat.BasePriority, cat.CreatedAt, cat.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return ticket.Category{}, wrapErr(err, "creating category")
	}
	cat.ID = id
	return cat, nil
}

func (repo *ticketRepository) GetCategoryByID(ctx context.Context, id int) (ticket.Category, error) {
	var row categoryRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM category WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return ticket.Category{}, ticket.ErrCategoryNotFound
		}
		return ticket.Category{}, wrapErr(err, "getting category")
	}
	return row.category(), nil
}

func (repo *ticketRepository) QueryAllCategories(ctx context.Context) ([]ticket.Category, error) {
	var rows []categoryRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM category ORDER BY name"); err != nil {
		return nil, wrapErr(err, "getting categories")
	}
	cats := make([]ticket.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, row.category())
	}
	return cats, nil
}

func (repo *ticketRepository) UpdateCategory(ctx context.Context, cat ticket.Category) (ticket.Category, error) {
	const q = `
UPDATE category
SET name = $1, description = $2, responsible_email = $3, base_priority = $4, updated_at = $5
WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, q,
		cat.Name, cat.Description, cat.ResponsibleEmail, cat.BasePriority, cat.UpdatedAt, cat.ID)
	if err != nil {
		return ticket.Category{}, wrapErr(err, "updating category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ticket.Category{}, ticket.ErrCategoryNotFound
	}
	return cat, nil
}

func (repo *ticketRepository) DeleteCategory(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM category WHERE id = $1", id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == fkViolation {
			return ticket.ErrCategoryInUse
		}
		return wrapErr(err, "deleting category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ticket.ErrCategoryNotFound
	}
	return nil
}
