package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkchat/tools/errs"
)

func pendingEdge(requester, recipient int64) *FriendEdge {
	return &FriendEdge{
		ID:          1,
		RequesterID: requester,
		RecipientID: recipient,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
}

func TestResolveRequest(t *testing.T) {
	accepted := pendingEdge(2, 1)
	accepted.Status = StatusAccepted

	tests := []struct {
		name     string
		existing *FriendEdge
		from, to int64
		want     RequestAction
		wantErr  error
	}{
		{name: "no edge creates pending", existing: nil, from: 1, to: 2, want: ActionCreate},
		{name: "self request rejected", existing: nil, from: 7, to: 7, wantErr: errs.ErrSelfRequest},
		{name: "accepted pair rejected", existing: accepted, from: 1, to: 2, wantErr: errs.ErrAlreadyFriends},
		{name: "same direction duplicate", existing: pendingEdge(1, 2), from: 1, to: 2, wantErr: errs.ErrDuplicateReq},
		{name: "opposite direction auto accepts", existing: pendingEdge(2, 1), from: 1, to: 2, want: ActionAutoAccept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRequest(tt.existing, tt.from, tt.to)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Mutual requests must converge on a single accepted edge: the second
// send resolves to acceptance of the first instead of creating anything.
func TestMutualRequestShortCircuit(t *testing.T) {
	first, err := ResolveRequest(nil, 1, 2)
	require.NoError(t, err)
	require.Equal(t, ActionCreate, first)

	second, err := ResolveRequest(pendingEdge(1, 2), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, ActionAutoAccept, second)
}
