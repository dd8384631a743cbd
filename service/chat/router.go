package chat

import (
	"context"
	"strings"

	"linkchat/logger"
	"linkchat/service/metrics"
)

// Streaming-state frame handlers. Every drop here is silent on the wire:
// a peer must not learn friend-graph state from error differences on the
// stream. The drop reason still lands in logs and metrics.

func (s *Server) drop(reason, connID string) {
	metrics.FramesDropped.WithLabelValues(reason).Inc()
	logger.Debugf("frame dropped reason=%s conn=%s", reason, connID)
}

func (s *Server) handleMessage(ctx context.Context, c *Client, f *InboundFrame) {
	if strings.TrimSpace(f.Text) == "" || f.Recipient == "" {
		s.drop("empty_message", c.ID)
		return
	}
	recipient, err := s.users.FindByUsername(ctx, f.Recipient)
	if err != nil {
		s.drop("unknown_recipient", c.ID)
		return
	}
	ok, err := s.friends.AreFriends(ctx, c.UserID, recipient.ID)
	if err != nil {
		logger.Errorf("friend check failed sender=%d recipient=%d err=%v", c.UserID, recipient.ID, err)
		s.drop("friend_check_failed", c.ID)
		return
	}
	if !ok {
		s.drop("not_friends", c.ID)
		return
	}

	msg, err := s.messages.Append(ctx, c.UserID, recipient.ID, f.Text)
	if err != nil {
		// Durability failed: no delivery and no ack, the sender sees a
		// generic non-confirmation rather than a crash.
		logger.Errorf("persist message failed sender=%d recipient=%d err=%v", c.UserID, recipient.ID, err)
		s.drop("persist_failed", c.ID)
		return
	}
	metrics.MessagesPersisted.Inc()

	// Deliver to every live recipient connection, then nudge their
	// notification badge. Zero live connections is fine: the row is
	// durable and surfaces as unread on the next conversation listing.
	s.reg.Send(recipient.ID, BuildMessage(msg.ID, msg.ConversationID, c.Username, f.Text, msg.Timestamp))
	s.reg.Send(recipient.ID, BuildNotificationUpdate(c.Username))

	// Ack goes to the sending connection alone, not all of the sender's
	// devices.
	if err := c.write(BuildMessageSent(msg.ID, msg.ConversationID, f.Recipient, f.Text, msg.Timestamp)); err != nil {
		s.reg.evict(c)
	}
}

func (s *Server) handleTyping(ctx context.Context, c *Client, f *InboundFrame) {
	if f.Recipient == "" {
		s.drop("no_recipient", c.ID)
		return
	}
	recipient, err := s.users.FindByUsername(ctx, f.Recipient)
	if err != nil {
		s.drop("unknown_recipient", c.ID)
		return
	}
	// Forwarded verbatim, never persisted.
	s.reg.Send(recipient.ID, BuildTypingIndicator(c.Username, f.IsTyping))
}

func (s *Server) handleReadReceipt(ctx context.Context, c *Client, f *InboundFrame) {
	if f.MessageID == 0 {
		s.drop("no_message_id", c.ID)
		return
	}
	senderID, recipientID, err := s.messages.Endpoints(ctx, f.MessageID)
	if err != nil {
		s.drop("unknown_message", c.ID)
		return
	}
	// Only the message's recipient can have read it; anyone else is
	// forging receipts for someone else's conversation.
	if c.UserID != recipientID {
		s.drop("receipt_not_recipient", c.ID)
		return
	}
	// Receipts go to the original sender only, not broadcast-wide.
	s.reg.Send(senderID, BuildReadReceipt(f.MessageID, c.Username))
}
