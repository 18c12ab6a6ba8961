package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/account-service/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique index violation.
const mysqlDuplicateEntry = 1062

const userColumns = "id,name,first_name,last_name,email,password_hash,date_of_birth,phone_no,roles,email_notifications,created_at,updated_at"

const (
	selectUserByIDQuery    = "SELECT " + userColumns + " FROM users WHERE id=? LIMIT 1"
	selectUserByEmailQuery = "SELECT " + userColumns + " FROM users WHERE email=? LIMIT 1"
	insertUserQuery        = "INSERT INTO users (" + userColumns + ") VALUES (?,?,?,?,?,?,?,?,?,?,?,?)"
)

// UserRepo is the MySQL-backed UserStore. Email uniqueness is enforced by
// the uq_users_email index created in the migrations.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts u under a fresh UUID.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	u.ID = uuid.NewString()
	u.Email = model.NormalizeEmail(u.Email)
	u.Roles = model.NormalizeRoles(u.Roles)
	if len(u.Roles) == 0 {
		u.Roles = []string{model.DefaultRole}
	}
	now := time.Now().UTC().Truncate(time.Second)
	u.CreatedAt, u.UpdatedAt = now, now

	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return model.User{}, fmt.Errorf("encode roles: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, insertUserQuery,
		u.ID, u.Name, u.FirstName, u.LastName, u.Email, u.PasswordHash,
		nullTime(u.DateOfBirth), nullString(u.PhoneNo), string(roles),
		u.EmailNotifications, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return model.User{}, ErrConflict
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, selectUserByEmailQuery, model.NormalizeEmail(email)))
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, selectUserByIDQuery, id))
}

// UpdateByID applies patch and reads the row back inside one transaction so
// the returned record is the one this update produced.
func (r *UserRepo) UpdateByID(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	query, args := buildUpdate(id, patch, time.Now().UTC().Truncate(time.Second))

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateEntry(err) {
			return model.User{}, ErrConflict
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	u, err := scanUser(tx.QueryRowContext(ctx, selectUserByIDQuery, id))
	if err != nil {
		return model.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, fmt.Errorf("commit update: %w", err)
	}
	return u, nil
}

// buildUpdate renders the UPDATE statement for patch. Columns always appear
// in the same order so the statement text is stable for a given patch shape.
func buildUpdate(id string, p model.UserPatch, now time.Time) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Email != nil {
		add("email", model.NormalizeEmail(*p.Email))
	}
	if p.PasswordHash != nil {
		add("password_hash", *p.PasswordHash)
	}
	if p.DateOfBirth != nil {
		add("date_of_birth", *p.DateOfBirth)
	}
	if p.PhoneNo != nil {
		add("phone_no", *p.PhoneNo)
	}
	if p.EmailNotifications != nil {
		add("email_notifications", *p.EmailNotifications)
	}
	add("updated_at", now)
	args = append(args, id)
	return "UPDATE users SET " + strings.Join(sets, ",") + " WHERE id=?", args
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u     model.User
		dob   sql.NullTime
		phone sql.NullString
		roles []byte
	)
	err := row.Scan(&u.ID, &u.Name, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&dob, &phone, &roles, &u.EmailNotifications, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	if dob.Valid {
		t := dob.Time
		u.DateOfBirth = &t
	}
	u.PhoneNo = phone.String
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &u.Roles); err != nil {
			return model.User{}, fmt.Errorf("decode roles: %w", err)
		}
	}
	return u, nil
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
