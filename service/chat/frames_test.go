package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, f *InboundFrame)
	}{
		{
			name: "message frame",
			raw:  `{"type":"message","text":"hi","recipient":"kim"}`,
			check: func(t *testing.T, f *InboundFrame) {
				assert.Equal(t, FrameMessage, f.Type)
				assert.Equal(t, "hi", f.Text)
				assert.Equal(t, "kim", f.Recipient)
			},
		},
		{
			name: "typing frame",
			raw:  `{"type":"typing_indicator","recipient":"kim","isTyping":true}`,
			check: func(t *testing.T, f *InboundFrame) {
				assert.Equal(t, FrameTyping, f.Type)
				assert.True(t, f.IsTyping)
			},
		},
		{
			name: "read receipt frame",
			raw:  `{"type":"read_receipt","message_id":42}`,
			check: func(t *testing.T, f *InboundFrame) {
				assert.Equal(t, FrameReadReceipt, f.Type)
				assert.EqualValues(t, 42, f.MessageID)
			},
		},
		{name: "not json", raw: `{{{{`, wantErr: true},
		{name: "missing type tag", raw: `{"text":"hi"}`, wantErr: true},
		{name: "unknown type tag", raw: `{"type":"launch_missiles"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, f)
		})
	}
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestOutboundFrameShapes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m := decode(t, BuildMessage(7, "conv_1_2", "sam", "hello", now))
	assert.Equal(t, "message", m["type"])
	assert.EqualValues(t, 7, m["message_id"])
	assert.Equal(t, "conv_1_2", m["conversation_id"])
	assert.Equal(t, "sam", m["sender_username"])
	assert.Equal(t, "hello", m["text"])

	ack := decode(t, BuildMessageSent(7, "conv_1_2", "kim", "hello", now))
	assert.Equal(t, "message_sent", ack["type"])
	assert.Equal(t, "kim", ack["recipient"])

	st := decode(t, BuildUserStatus(1, "sam", StatusOffline))
	assert.Equal(t, "user_status_update", st["type"])
	assert.Equal(t, "offline", st["status"])

	fr := decode(t, BuildFriendRequestUpdate("sam", "kim", EventRequestAccepted))
	assert.Equal(t, "friend_request_update", fr["type"])
	assert.Equal(t, "accepted", fr["kind"])

	ty := decode(t, BuildTypingIndicator("sam", true))
	assert.Equal(t, "typing_indicator", ty["type"])
	assert.Equal(t, true, ty["isTyping"])

	rr := decode(t, BuildReadReceipt(42, "kim"))
	assert.Equal(t, "read_receipt", rr["type"])
	assert.Equal(t, "kim", rr["reader_username"])

	ce := decode(t, BuildConnectionEstablished("c1", "sam"))
	assert.Equal(t, "connection_established", ce["type"])
	assert.Equal(t, "c1", ce["connection_id"])
}
