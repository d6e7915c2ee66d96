package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/emisoft/buzon/core/staff"
)

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sql.DB) staff.Repository {
	return &staffRepository{db: sqlx.NewDb(db, "postgres")}
}

type staffRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	IsAdmin      bool      `db:"is_admin"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    null.Time `db:"created_at"`
	UpdatedAt    null.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r staffRow) user() staff.User {
	return staff.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsAdmin:      r.IsAdmin,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

func (repo *staffRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	var exists bool
	const q = `SELECT EXISTS (SELECT 1 FROM staff_user WHERE email = $1)`
	if err := repo.db.GetContext(ctx, &exists, q, email); err != nil {
		return wrapErr(err, "checking staff email")
	}
	if exists {
		return staff.ErrEmailExists
	}
	return nil
}

func (repo *staffRepository) CreateUser(ctx context.Context, usr staff.User) (staff.User, error) {
	const q = `
INSERT INTO staff_user (name, email, is_admin, is_active, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	var id int
	err := repo.db.QueryRowxContext(ctx, q,
		usr.Name, usr.Email, usr.IsAdmin, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return staff.User{}, wrapErr(err, "creating staff user")
	}
	usr.ID = id
	return usr, nil
}

func (repo *staffRepository) QueryAllUsers(ctx context.Context) ([]staff.User, error) {
	var rows []staffRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM staff_user ORDER BY id"); err != nil {
		return nil, wrapErr(err, "getting staff users")
	}
	users := make([]staff.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *staffRepository) GetUserByID(ctx context.Context, id int) (staff.User, error) {
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM staff_user WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return staff.User{}, staff.ErrNotFound
		}
		return staff.User{}, wrapErr(err, "getting staff user")
	}
	return row.user(), nil
}

func (repo *staffRepository) GetUserByEmail(ctx context.Context, email string) (staff.User, error) {
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM staff_user WHERE email = $1", email); err != nil {
		if err == sql.ErrNoRows {
			return staff.User{}, staff.ErrNotFound
		}
		return staff.User{}, wrapErr(err, "getting staff user")
	}
	return row.user(), nil
}

func (repo *staffRepository) UpdateUser(ctx context.Context, usr staff.User) (staff.User, error) {
	const q = `
UPDATE staff_user
SET name = $1, email = $2, is_admin = $3, is_active = $4, password_hash = $5, updated_at = $6, last_login = $7
WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, q,
		usr.Name, usr.Email, usr.IsAdmin, usr.IsActive, usr.PasswordHash,
		usr.UpdatedAt, null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()), usr.ID)
	if err != nil {
		return staff.User{}, wrapErr(err, "updating staff user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return staff.User{}, staff.ErrNotFound
	}
	return usr, nil
}
