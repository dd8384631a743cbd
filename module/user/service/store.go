package service

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"linkchat/module/user/model"
	"linkchat/tools/errs"
)

// Store is the pgx-backed user store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const uniqueViolation = "23505"

// Create inserts a new user. A duplicate username or email surfaces as
// a coded conflict instead of a raw driver error.
func (s *Store) Create(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	u := &model.User{Username: username, Email: email, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		username, email, passwordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, errs.ErrDuplicateReq.WithDetail("username or email taken")
		}
		return nil, errors.Wrap(err, "insert user")
	}
	return u, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at
		 FROM users WHERE username = $1`, username))
}

func (s *Store) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at
		 FROM users WHERE id = $1`, id))
}

// Search matches usernames by substring, excluding one identity,
// ordered by handle.
func (s *Store) Search(ctx context.Context, term string, excludingID int64) ([]*model.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, email, password_hash, created_at
		 FROM users
		 WHERE username ILIKE '%' || $1 || '%' AND id <> $2
		 ORDER BY username`,
		term, excludingID)
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) scanOne(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user")
	}
	return u, nil
}
