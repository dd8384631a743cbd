package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkchat/middleware/security"
	"linkchat/module/chat/model"
	usermodel "linkchat/module/user/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memMessages struct {
	msgs []*model.Message
}

func (m *memMessages) seed(sender, recipient int64, text string) {
	m.msgs = append(m.msgs, &model.Message{
		ID:             int64(len(m.msgs) + 1),
		ConversationID: model.ConversationID(sender, recipient),
		SenderID:       sender,
		RecipientID:    recipient,
		Text:           text,
		Timestamp:      time.Now(),
	})
}

func (m *memMessages) RecentConversations(context.Context, int64, int) ([]*model.ConversationSummary, error) {
	return nil, nil
}

func (m *memMessages) History(_ context.Context, a, b int64, limit int) ([]*model.Message, error) {
	conv := model.ConversationID(a, b)
	var out []*model.Message
	for _, msg := range m.msgs {
		if msg.ConversationID == conv && len(out) < limit {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) MarkRead(_ context.Context, recipient, sender int64) error {
	for _, msg := range m.msgs {
		if msg.RecipientID == recipient && msg.SenderID == sender && !msg.IsRead {
			msg.IsRead = true
		}
	}
	return nil
}

func (m *memMessages) UnreadCount(_ context.Context, recipient, sender int64) (int64, error) {
	var n int64
	for _, msg := range m.msgs {
		if msg.RecipientID == recipient && msg.SenderID == sender && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func doJSON(t *testing.T, h *Handler, call func(*gin.Context), partnerID string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: partnerID}}
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(security.CtxUserKey, &usermodel.User{ID: 1, Username: "sam"})
	call(c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestMarkReadIdempotent(t *testing.T) {
	store := &memMessages{}
	store.seed(2, 1, "hi")
	store.seed(2, 1, "there")
	h := NewHandler(store)

	code, body := doJSON(t, h, h.unreadCount, "2")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["unread"])

	// first mark-read clears everything, the second finds nothing to flip
	for i := 0; i < 2; i++ {
		code, _ = doJSON(t, h, h.markRead, "2")
		require.Equal(t, http.StatusOK, code)

		code, body = doJSON(t, h, h.unreadCount, "2")
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 0, body["unread"])
	}

	// the flag never reverses
	for _, msg := range store.msgs {
		assert.True(t, msg.IsRead)
	}
}

func TestHistorySurvivesAnyFriendState(t *testing.T) {
	store := &memMessages{}
	store.seed(1, 2, "hello")
	store.seed(2, 1, "hey")
	h := NewHandler(store)

	code, body := doJSON(t, h, h.history, "2")
	require.Equal(t, http.StatusOK, code)
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}
