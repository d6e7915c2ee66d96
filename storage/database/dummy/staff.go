package dummydb

import (
	"context"
	"sort"

	"github.com/emisoft/buzon/core/staff"
)

var staffPKCount int

type staffRepository struct {
	db *staffTable
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) staff.Repository {
	return &staffRepository{db: db.staff}
}

func (repo *staffRepository) query() []staff.User {
	users := make([]staff.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (repo *staffRepository) CheckEmailUniqueness(_ context.Context, email string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if usr.Email == email {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo *staffRepository) CreateUser(_ context.Context, usr staff.User) (staff.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	staffPKCount++
	usr.ID = staffPKCount
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *staffRepository) QueryAllUsers(_ context.Context) ([]staff.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *staffRepository) GetUserByID(_ context.Context, id int) (staff.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return staff.User{}, staff.ErrNotFound
}

func (repo *staffRepository) GetUserByEmail(_ context.Context, email string) (staff.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return staff.User{}, staff.ErrNotFound
}

func (repo *staffRepository) UpdateUser(_ context.Context, usr staff.User) (staff.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return staff.User{}, staff.ErrNotFound
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}
