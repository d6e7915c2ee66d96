package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emisoft/buzon/core/ticket"
)

var catPKCount int

type ticketRepository struct {
	tickets    *ticketTable
	categories *categoryTable
}

var _ ticket.Repository = (*ticketRepository)(nil) // interface compliance check

func NewTicketRepository(db *DB) ticket.Repository {
	return &ticketRepository{tickets: db.ticket, categories: db.category}
}

func (repo *ticketRepository) query() []ticket.Ticket {
	tkts := make([]ticket.Ticket, 0, len(repo.tickets.table))
	for _, t := range repo.tickets.table {
		tkts = append(tkts, *t)
	}
	sort.Slice(tkts, func(i, j int) bool { return tkts[i].CreatedAt.After(tkts[j].CreatedAt) })
	return tkts
}

func (repo *ticketRepository) CreateTicket(_ context.Context, tkt ticket.Ticket) (ticket.Ticket, error) {
	repo.tickets.Lock()
	defer repo.tickets.Unlock()

	repo.tickets.table[tkt.ID] = &tkt
	return tkt, nil
}

func (repo *ticketRepository) GetTicketByID(_ context.Context, id uuid.UUID) (ticket.Ticket, error) {
	repo.tickets.RLock()
	defer repo.tickets.RUnlock()

	if tkt, ok := repo.tickets.table[id]; ok {
		return *tkt, nil
	}
	return ticket.Ticket{}, ticket.ErrNotFound
}

func (repo *ticketRepository) FilterTickets(_ context.Context, filter ticket.QueryFilter) ([]ticket.Ticket, error) {
	repo.tickets.RLock()
	defer repo.tickets.RUnlock()

	tkts := repo.query()

	if filter.Status != "" {
		var filtered []ticket.Ticket
		for _, t := range tkts {
			if t.Status == filter.Status {
				filtered = append(filtered, t)
			}
		}
		tkts = filtered
	}
	if tkts != nil && filter.CategoryID != 0 {
		var filtered []ticket.Ticket
		for _, t := range tkts {
			if t.CategoryID == filter.CategoryID {
				filtered = append(filtered, t)
			}
		}
		tkts = filtered
	}
	// tickets with search keyword matching Subject or Description ?
	if tkts != nil && filter.Search != "" {
		search := strings.ToLower(filter.Search)
		var filtered []ticket.Ticket
		for _, t := range tkts {
			if strings.Contains(strings.ToLower(t.Subject), search) ||
				strings.Contains(strings.ToLower(t.Description), search) {
				filtered = append(filtered, t)
			}
		}
		tkts = filtered
	}
	if tkts != nil && !filter.CreatedFrom.IsZero() {
		timeUTC := filter.CreatedFrom.UTC()
		var filtered []ticket.Ticket
		for _, t := range tkts {
			if t.CreatedAt.Equal(timeUTC) || t.CreatedAt.After(timeUTC) {
				filtered = append(filtered, t)
			}
		}
		tkts = filtered
	}
	if tkts != nil && !filter.CreatedTo.IsZero() {
		timeUTC := filter.CreatedTo.UTC()
		var filtered []ticket.Ticket
		for _, t := range tkts {
			if t.CreatedAt.Before(timeUTC) || t.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, t)
			}
		}
		tkts = filtered
	}

	return tkts, nil
}

func (repo *ticketRepository) UpdateTicket(_ context.Context, tkt ticket.Ticket) (ticket.Ticket, error) {
	repo.tickets.Lock()
	defer repo.tickets.Unlock()

	orig, ok := repo.tickets.table[tkt.ID]
	if !ok {
		return ticket.Ticket{}, ticket.ErrNotFound
	}
	orig.Status = tkt.Status
	orig.AdminNotes = tkt.AdminNotes
	orig.UpdatedAt = tkt.UpdatedAt

	repo.tickets.table[tkt.ID] = orig
	return *orig, nil
}

func (repo *ticketRepository) UpdateTicketStatuses(_ context.Context, status ticket.Status, ids ...uuid.UUID) error {
	repo.tickets.Lock()
	defer repo.tickets.Unlock()

	now := time.Now().UTC()
	for _, id := range ids {
		if tkt, ok := repo.tickets.table[id]; ok {
			tkt.Status = status
			tkt.UpdatedAt = now
		}
	}
	return nil
}

func (repo *ticketRepository) CountTicketsByStatus(_ context.Context) (map[ticket.Status]int, error) {
	repo.tickets.RLock()
	defer repo.tickets.RUnlock()

	counts := make(map[ticket.Status]int)
	for _, t := range repo.tickets.table {
		if t.Status == ticket.StatusRejected {
			continue
		}
		counts[t.Status]++
	}
	return counts, nil
}

func (repo *ticketRepository) RecentTickets(_ context.Context, limit int) ([]ticket.Ticket, error) {
	repo.tickets.RLock()
	defer repo.tickets.RUnlock()

	var tkts []ticket.Ticket
	for _, t := range repo.query() {
		if t.Status == ticket.StatusRejected {
			continue
		}
		tkts = append(tkts, t)
		if len(tkts) == limit {
			break
		}
	}
	return tkts, nil
}

// Categories

func (repo *ticketRepository) CreateCategory(_ context.Context, cat ticket.Category) (ticket.Category, error) {
	repo.categories.Lock()
	defer repo.categories.Unlock()

	catPKCount++
	cat.ID = catPKCount
	repo.categories.table[cat.ID] = &cat
	return cat, nil
}

func (repo *ticketRepository) GetCategoryByID(_ context.Context, id int) (ticket.Category, error) {
	repo.categories.RLock()
	defer repo.categories.RUnlock()

	if cat, ok := repo.categories.table[id]; ok {
		return *cat, nil
	}
	return ticket.Category{}, ticket.ErrCategoryNotFound
}

func (repo *ticketRepository) QueryAllCategories(_ context.Context) ([]ticket.Category, error) {
	repo.categories.RLock()
	defer repo.categories.RUnlock()

	cats := make([]ticket.Category, 0, len(repo.categories.table))
	for _, cat := range repo.categories.table {
		cats = append(cats, *cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (repo *ticketRepository) UpdateCategory(_ context.Context, cat ticket.Category) (ticket.Category, error) {
	repo.categories.Lock()
	defer repo.categories.Unlock()

	if _, ok := repo.categories.table[cat.ID]; !ok {
		return ticket.Category{}, ticket.ErrCategoryNotFound
	}
	repo.categories.table[cat.ID] = &cat
	return cat, nil
}

func (repo *ticketRepository) DeleteCategory(_ context.Context, id int) error {
	repo.categories.Lock()
	defer repo.categories.Unlock()

	if _, ok := repo.categories.table[id]; !ok {
		return ticket.ErrCategoryNotFound
	}

	repo.tickets.RLock()
	defer repo.tickets.RUnlock()
	for _, t := range repo.tickets.table {
		if t.CategoryID == id {
			return ticket.ErrCategoryInUse
		}
	}

	delete(repo.categories.table, id)
	return nil
}
