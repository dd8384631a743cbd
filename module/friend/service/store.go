package service

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"linkchat/module/friend/model"
	"linkchat/tools/errs"
)

// Store owns the friends table. Every mutation is atomic with respect to
// the unordered-pair invariant: the pair's edge row is locked inside a
// transaction before the transition is decided.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RequestOutcome tells the caller whether sendRequest created a pending
// edge or short-circuited to acceptance, so it can emit the right event.
type RequestOutcome int

const (
	OutcomeRequested RequestOutcome = iota
	OutcomeAccepted
)

const pairFilter = `(requester_id = $1 AND recipient_id = $2) OR (requester_id = $2 AND recipient_id = $1)`

// SendRequest creates a pending edge from->to, or short-circuits a
// mutual pending pair straight to accepted.
func (s *Store) SendRequest(ctx context.Context, from, to int64) (RequestOutcome, error) {
	if from == to {
		return 0, errs.ErrSelfRequest
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin send request")
	}
	defer tx.Rollback(ctx)

	existing, err := lockPair(ctx, tx, from, to)
	if err != nil {
		return 0, err
	}
	action, err := model.ResolveRequest(existing, from, to)
	if err != nil {
		return 0, err
	}

	outcome := OutcomeRequested
	switch action {
	case model.ActionCreate:
		_, err = tx.Exec(ctx,
			`INSERT INTO friends (requester_id, recipient_id, status) VALUES ($1, $2, $3)`,
			from, to, model.StatusPending)
	case model.ActionAutoAccept:
		_, err = tx.Exec(ctx,
			`UPDATE friends SET status = $1 WHERE id = $2`,
			model.StatusAccepted, existing.ID)
		outcome = OutcomeAccepted
	}
	if err != nil {
		return 0, errors.Wrap(err, "apply send request")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit send request")
	}
	return outcome, nil
}

// Accept transitions the pending edge requester->recipient to accepted.
func (s *Store) Accept(ctx context.Context, recipient, requester int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE friends SET status = $1
		 WHERE requester_id = $2 AND recipient_id = $3 AND status = $4`,
		model.StatusAccepted, requester, recipient, model.StatusPending)
	if err != nil {
		return errors.Wrap(err, "accept request")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNoSuchRequest
	}
	return nil
}

// Reject deletes the pending edge requester->recipient. Cancel is the
// same deletion keyed from the initiating side; net effect is identical.
func (s *Store) Reject(ctx context.Context, recipient, requester int64) error {
	return s.deletePending(ctx, requester, recipient)
}

func (s *Store) Cancel(ctx context.Context, requester, recipient int64) error {
	return s.deletePending(ctx, requester, recipient)
}

func (s *Store) deletePending(ctx context.Context, requester, recipient int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM friends
		 WHERE requester_id = $1 AND recipient_id = $2 AND status = $3`,
		requester, recipient, model.StatusPending)
	if err != nil {
		return errors.Wrap(err, "delete pending edge")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNoSuchRequest
	}
	return nil
}

// Remove deletes an accepted edge for the pair, either direction.
// Message history is deliberately untouched.
func (s *Store) Remove(ctx context.Context, a, b int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM friends WHERE (`+pairFilter+`) AND status = $3`,
		a, b, model.StatusAccepted)
	if err != nil {
		return errors.Wrap(err, "remove friend")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFriends
	}
	return nil
}

// AreFriends reports whether the pair holds an accepted edge. The router
// authorizes every message frame through this.
func (s *Store) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM friends WHERE (`+pairFilter+`) AND status = $3)`,
		a, b, model.StatusAccepted).Scan(&ok)
	if err != nil {
		return false, errors.Wrap(err, "check friendship")
	}
	return ok, nil
}

// ListAccepted returns the identity's friends, most recent edge first.
func (s *Store) ListAccepted(ctx context.Context, userID int64) ([]*model.FriendInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username, u.email, f.created_at
		 FROM friends f
		 JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.recipient_id ELSE f.requester_id END
		 WHERE (f.requester_id = $1 OR f.recipient_id = $1) AND f.status = $2
		 ORDER BY f.created_at DESC`,
		userID, model.StatusAccepted)
	if err != nil {
		return nil, errors.Wrap(err, "list friends")
	}
	defer rows.Close()

	var out []*model.FriendInfo
	for rows.Next() {
		fi := &model.FriendInfo{}
		if err := rows.Scan(&fi.UserID, &fi.Username, &fi.Email, &fi.Since); err != nil {
			return nil, errors.Wrap(err, "scan friend")
		}
		out = append(out, fi)
	}
	return out, rows.Err()
}

// ListIncomingPending lists requests awaiting the identity's answer.
func (s *Store) ListIncomingPending(ctx context.Context, userID int64) ([]*model.PendingInfo, error) {
	return s.listPending(ctx, userID, true)
}

// ListOutgoingPending lists requests the identity sent and may cancel.
func (s *Store) ListOutgoingPending(ctx context.Context, userID int64) ([]*model.PendingInfo, error) {
	return s.listPending(ctx, userID, false)
}

func (s *Store) listPending(ctx context.Context, userID int64, incoming bool) ([]*model.PendingInfo, error) {
	var q string
	if incoming {
		q = `SELECT u.id, u.username, u.email, f.created_at
		     FROM friends f JOIN users u ON u.id = f.requester_id
		     WHERE f.recipient_id = $1 AND f.status = $2
		     ORDER BY f.created_at DESC`
	} else {
		q = `SELECT u.id, u.username, u.email, f.created_at
		     FROM friends f JOIN users u ON u.id = f.recipient_id
		     WHERE f.requester_id = $1 AND f.status = $2
		     ORDER BY f.created_at DESC`
	}
	rows, err := s.pool.Query(ctx, q, userID, model.StatusPending)
	if err != nil {
		return nil, errors.Wrap(err, "list pending")
	}
	defer rows.Close()

	var out []*model.PendingInfo
	for rows.Next() {
		pi := &model.PendingInfo{Incoming: incoming}
		if err := rows.Scan(&pi.UserID, &pi.Username, &pi.Email, &pi.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan pending")
		}
		out = append(out, pi)
	}
	return out, rows.Err()
}

// ListAllPending merges both directions, most recent first.
func (s *Store) ListAllPending(ctx context.Context, userID int64) ([]*model.PendingInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username, u.email, f.recipient_id = $1 AS incoming, f.created_at
		 FROM friends f
		 JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.recipient_id ELSE f.requester_id END
		 WHERE (f.requester_id = $1 OR f.recipient_id = $1) AND f.status = $2
		 ORDER BY f.created_at DESC`,
		userID, model.StatusPending)
	if err != nil {
		return nil, errors.Wrap(err, "list all pending")
	}
	defer rows.Close()

	var out []*model.PendingInfo
	for rows.Next() {
		pi := &model.PendingInfo{}
		if err := rows.Scan(&pi.UserID, &pi.Username, &pi.Email, &pi.Incoming, &pi.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan pending")
		}
		out = append(out, pi)
	}
	return out, rows.Err()
}

func lockPair(ctx context.Context, tx pgx.Tx, a, b int64) (*model.FriendEdge, error) {
	e := &model.FriendEdge{}
	err := tx.QueryRow(ctx,
		`SELECT id, requester_id, recipient_id, status, created_at
		 FROM friends WHERE `+pairFilter+` FOR UPDATE`,
		a, b).Scan(&e.ID, &e.RequesterID, &e.RecipientID, &e.Status, &e.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock pair edge")
	}
	return e, nil
}
