package chat

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Inbound frame kinds. The type tag is the union discriminant; anything
// else is rejected at the parse boundary instead of deep in a handler.
const (
	FrameMessage     = "message"
	FrameTyping      = "typing_indicator"
	FrameReadReceipt = "read_receipt"
)

// InboundFrame is the decoded client frame. Fields outside the tagged
// kind are simply zero; handlers validate what they need.
type InboundFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	IsTyping  bool   `json:"isTyping,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
}

// ParseFrame decodes one wire frame. A frame that does not decode, or
// whose type tag is unknown, is an error; the caller drops it without
// tearing the stream down.
func ParseFrame(raw []byte) (*InboundFrame, error) {
	f := &InboundFrame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	switch f.Type {
	case FrameMessage, FrameTyping, FrameReadReceipt:
		return f, nil
	default:
		return nil, errors.Errorf("unknown frame type %q", f.Type)
	}
}

// ---- server-built outbound frames ----

type connectionEstablishedFrame struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	Username     string `json:"username"`
	Ts           int64  `json:"ts"`
}

type messageFrame struct {
	Type           string `json:"type"`
	MessageID      int64  `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderUsername string `json:"sender_username"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
}

type notificationUpdateFrame struct {
	Type           string `json:"type"`
	SenderUsername string `json:"sender_username"`
}

type messageSentFrame struct {
	Type           string `json:"type"`
	MessageID      int64  `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	Recipient      string `json:"recipient"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
}

type typingIndicatorFrame struct {
	Type           string `json:"type"`
	SenderUsername string `json:"sender_username"`
	IsTyping       bool   `json:"isTyping"`
}

type readReceiptFrame struct {
	Type           string `json:"type"`
	MessageID      int64  `json:"message_id"`
	ReaderUsername string `json:"reader_username"`
}

type userStatusFrame struct {
	Type     string `json:"type"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

type friendRequestFrame struct {
	Type              string `json:"type"`
	SenderUsername    string `json:"sender_username"`
	RecipientUsername string `json:"recipient_username"`
	Kind              string `json:"kind"`
}

// The outbound shapes are static structs of scalars; marshalling them
// cannot fail, so builders return the encoded bytes directly.
func encodeFrame(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}

func BuildConnectionEstablished(connID, username string) []byte {
	return encodeFrame(connectionEstablishedFrame{
		Type:         "connection_established",
		ConnectionID: connID,
		Username:     username,
		Ts:           time.Now().UnixMilli(),
	})
}

func BuildMessage(id int64, convID, senderUsername, text string, ts time.Time) []byte {
	return encodeFrame(messageFrame{
		Type:           "message",
		MessageID:      id,
		ConversationID: convID,
		SenderUsername: senderUsername,
		Text:           text,
		Timestamp:      ts.UTC().Format(time.RFC3339Nano),
	})
}

func BuildNotificationUpdate(senderUsername string) []byte {
	return encodeFrame(notificationUpdateFrame{
		Type:           "notification_update",
		SenderUsername: senderUsername,
	})
}

func BuildMessageSent(id int64, convID, recipient, text string, ts time.Time) []byte {
	return encodeFrame(messageSentFrame{
		Type:           "message_sent",
		MessageID:      id,
		ConversationID: convID,
		Recipient:      recipient,
		Text:           text,
		Timestamp:      ts.UTC().Format(time.RFC3339Nano),
	})
}

func BuildTypingIndicator(senderUsername string, isTyping bool) []byte {
	return encodeFrame(typingIndicatorFrame{
		Type:           "typing_indicator",
		SenderUsername: senderUsername,
		IsTyping:       isTyping,
	})
}

func BuildReadReceipt(messageID int64, readerUsername string) []byte {
	return encodeFrame(readReceiptFrame{
		Type:           "read_receipt",
		MessageID:      messageID,
		ReaderUsername: readerUsername,
	})
}

func BuildUserStatus(userID int64, username, status string) []byte {
	return encodeFrame(userStatusFrame{
		Type:     "user_status_update",
		UserID:   userID,
		Username: username,
		Status:   status,
	})
}

func BuildFriendRequestUpdate(senderUsername, recipientUsername, kind string) []byte {
	return encodeFrame(friendRequestFrame{
		Type:              "friend_request_update",
		SenderUsername:    senderUsername,
		RecipientUsername: recipientUsername,
		Kind:              kind,
	})
}
