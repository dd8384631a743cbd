package model

import (
	"time"

	"linkchat/tools/errs"
)

// Edge status values. An unordered pair holds at most one edge: absent,
// pending in exactly one direction, or accepted.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// FriendEdge is the directed relationship-request record. RequesterID is
// the side that initiated, RecipientID the side being asked.
type FriendEdge struct {
	ID          int64     `json:"id"`
	RequesterID int64     `json:"requester_id"`
	RecipientID int64     `json:"recipient_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// RequestAction is the store mutation a send-request call must perform.
type RequestAction int

const (
	// ActionCreate inserts a fresh pending edge requester->recipient.
	ActionCreate RequestAction = iota
	// ActionAutoAccept flips the opposing pending edge straight to
	// accepted: both sides have now asked, no separate accept step.
	ActionAutoAccept
)

// ResolveRequest decides what sendRequest(from, to) does given the edge
// currently stored for the unordered pair (nil when absent). Keeping the
// decision pure keeps the pair invariant testable without a database.
func ResolveRequest(existing *FriendEdge, from, to int64) (RequestAction, error) {
	if from == to {
		return 0, errs.ErrSelfRequest
	}
	if existing == nil {
		return ActionCreate, nil
	}
	if existing.Status == StatusAccepted {
		return 0, errs.ErrAlreadyFriends
	}
	if existing.RequesterID == from {
		return 0, errs.ErrDuplicateReq
	}
	// Pending edge runs to->from: mutual request short-circuit.
	return ActionAutoAccept, nil
}

// FriendInfo is a friend-list row: the partner plus edge metadata.
type FriendInfo struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Since    time.Time `json:"since"`
}

// PendingInfo is a pending-request row with its direction relative to the
// identity that asked for the listing.
type PendingInfo struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Incoming  bool      `json:"incoming"`
	CreatedAt time.Time `json:"created_at"`
}
