package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	find       string
	create     string
	updateCity string
}

var postgresQueries = queries{
	find: `SELECT username, password_hash, last_city FROM users
		WHERE username = $1`,
	create: `INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING`,
	updateCity: `UPDATE users SET last_city = $1, updated_at = CURRENT_TIMESTAMP
		WHERE username = $2`,
}

var sqliteQueries = queries{
	find: `SELECT username, password_hash, last_city FROM users
		WHERE username = ?`,
	create: `INSERT INTO users (username, password_hash)
		VALUES (?, ?)
		ON CONFLICT (username) DO NOTHING`,
	updateCity: `UPDATE users SET last_city = ?, updated_at = CURRENT_TIMESTAMP
		WHERE username = ?`,
}

// SQLStore keeps users in a relational database. Every statement binds its
// arguments; the dialect only changes placeholder syntax.
type SQLStore struct {
	db DBTX
	q  queries
}

func NewPostgresStore(db DBTX) *SQLStore {
	return &SQLStore{db: db, q: postgresQueries}
}

func NewSQLiteStore(db DBTX) *SQLStore {
	return &SQLStore{db: db, q: sqliteQueries}
}

func (s *SQLStore) Find(ctx context.Context, username string) (*User, error) {
	var (
		u    User
		city sql.NullString
	)

	err := s.db.QueryRowContext(ctx, s.q.find, Canonicalize(username)).
		Scan(&u.Username, &u.PasswordHash, &city)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.LastCity = city.String
	return &u, nil
}

func (s *SQLStore) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	name := Canonicalize(username)

	res, err := s.db.ExecContext(ctx, s.q.create, name, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return nil, ErrAlreadyExists
	}

	return &User{Username: name, PasswordHash: passwordHash}, nil
}

func (s *SQLStore) UpdateLastCity(ctx context.Context, username, city string) error {
	res, err := s.db.ExecContext(ctx, s.q.updateCity, city, Canonicalize(username))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
