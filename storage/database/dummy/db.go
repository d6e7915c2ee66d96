package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/emisoft/buzon/core/staff"
	"github.com/emisoft/buzon/core/ticket"
)

type (
	DB struct {
		ticket   *ticketTable
		category *categoryTable
		staff    *staffTable
	}

	ticketTable struct {
		sync.RWMutex
		table map[uuid.UUID]*ticket.Ticket
	}

	categoryTable struct {
		sync.RWMutex
		table map[int]*ticket.Category
	}

	staffTable struct {
		sync.RWMutex
		table map[int]*staff.User
	}
)

func Open() (*DB, error) {
	db := &DB{
		ticket:   &ticketTable{table: make(map[uuid.UUID]*ticket.Ticket)},
		category: &categoryTable{table: make(map[int]*ticket.Category)},
		staff:    &staffTable{table: make(map[int]*staff.User)},
	}
	return db, nil
}
