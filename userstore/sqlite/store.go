// Package sqlite stores accounts in a SQLite database through modernc.org/sqlite.
//
// The schema is embedded and applied with golang-migrate when the store opens. Email
// uniqueness is enforced by the table, so a registration race surfaces as
// tokenAuth.ErrAccountExists rather than a second row.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/userstore/sqlite/migrations"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	findQuery = `SELECT id, email, password_hash, nickname, role FROM members WHERE email = ?1`

	existsQuery = `SELECT EXISTS(SELECT 1 FROM members WHERE email = ?1)`

	insertQuery = `INSERT INTO members (email, password_hash, nickname, age, region_id, bio, role, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)`

	setRoleQuery = `UPDATE members SET role = ?1 WHERE email = ?2`
)

// Store implements tokenAuth.UserProvider and tokenAuth.UserCreator.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) applyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (tokenAuth.UserRecord, bool, error) {
	var (
		rec  tokenAuth.UserRecord
		role string
	)
	err := s.db.QueryRowContext(ctx, findQuery, strings.TrimSpace(email)).
		Scan(&rec.MemberID, &rec.Email, &rec.PasswordHash, &rec.Nickname, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return tokenAuth.UserRecord{}, false, nil
	}
	if err != nil {
		return tokenAuth.UserRecord{}, false, fmt.Errorf("find member: %w", err)
	}
	rec.Role = tokenAuth.Role(role)
	return rec, true, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, existsQuery, strings.TrimSpace(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return exists, nil
}

// CreateUser inserts the account. A taken email returns tokenAuth.ErrAccountExists.
func (s *Store) CreateUser(ctx context.Context, in tokenAuth.CreateUserInput) (tokenAuth.UserRecord, error) {
	var age, region sql.NullInt64
	if in.Age != nil {
		age = sql.NullInt64{Int64: int64(*in.Age), Valid: true}
	}
	if in.RegionID != nil {
		region = sql.NullInt64{Int64: *in.RegionID, Valid: true}
	}
	email := strings.TrimSpace(in.Email)

	res, err := s.db.ExecContext(ctx, insertQuery,
		email, in.PasswordHash, in.Nickname, age, region, in.Bio, string(in.Role), s.now().UTC().UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return tokenAuth.UserRecord{}, tokenAuth.ErrAccountExists
		}
		return tokenAuth.UserRecord{}, fmt.Errorf("insert member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return tokenAuth.UserRecord{}, fmt.Errorf("insert member: %w", err)
	}

	return tokenAuth.UserRecord{
		MemberID:     id,
		Email:        email,
		Nickname:     in.Nickname,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
	}, nil
}

// SetRole changes an account's role. It reports whether a row was updated.
func (s *Store) SetRole(ctx context.Context, email string, role tokenAuth.Role) (bool, error) {
	res, err := s.db.ExecContext(ctx, setRoleQuery, string(role), strings.TrimSpace(email))
	if err != nil {
		return false, fmt.Errorf("update role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update role: %w", err)
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
