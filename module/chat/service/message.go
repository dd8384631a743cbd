package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"linkchat/module/chat/model"
)

// Store owns the messages table. Timestamps are assigned by the database
// at insert so ordering inside a conversation stays monotonic under
// concurrent senders; ties break on the serial row id.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Append inserts an unread message row and returns it with the
// store-assigned id and timestamp.
func (s *Store) Append(ctx context.Context, sender, recipient int64, text string) (*model.Message, error) {
	m := &model.Message{
		ConversationID: model.ConversationID(sender, recipient),
		SenderID:       sender,
		RecipientID:    recipient,
		Text:           text,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, recipient_id, text)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, timestamp, is_read`,
		m.ConversationID, sender, recipient, text,
	).Scan(&m.ID, &m.Timestamp, &m.IsRead)
	if err != nil {
		return nil, errors.Wrap(err, "append message")
	}
	return m, nil
}

// History returns all messages between the pair, oldest first, regardless
// of current friend status.
func (s *Store) History(ctx context.Context, a, b int64, limit int) ([]*model.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, sender_id, recipient_id, text, timestamp, is_read
		 FROM messages
		 WHERE conversation_id = $1
		 ORDER BY timestamp ASC, id ASC
		 LIMIT $2`,
		model.ConversationID(a, b), limit)
	if err != nil {
		return nil, errors.Wrap(err, "load history")
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		m := &model.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID,
			&m.Text, &m.Timestamp, &m.IsRead); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecentConversations returns, per distinct partner, the newest message
// (rank 1 of a partition over the conversation) plus the unread count
// from that partner, newest conversation first.
func (s *Store) RecentConversations(ctx context.Context, userID int64, limit int) ([]*model.ConversationSummary, error) {
	rows, err := s.pool.Query(ctx,
		`WITH ranked AS (
		     SELECT m.*,
		            CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS partner_id,
		            ROW_NUMBER() OVER (
		                PARTITION BY m.conversation_id
		                ORDER BY m.timestamp DESC, m.id DESC
		            ) AS rn
		     FROM messages m
		     WHERE m.sender_id = $1 OR m.recipient_id = $1
		 )
		 SELECT r.partner_id, u.username, r.text, r.sender_id, r.timestamp,
		        (SELECT COUNT(*) FROM messages
		         WHERE recipient_id = $1 AND sender_id = r.partner_id AND is_read = FALSE)
		 FROM ranked r
		 JOIN users u ON u.id = r.partner_id
		 WHERE r.rn = 1
		 ORDER BY r.timestamp DESC, r.id DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer rows.Close()

	var out []*model.ConversationSummary
	for rows.Next() {
		c := &model.ConversationSummary{}
		if err := rows.Scan(&c.PartnerID, &c.PartnerUsername, &c.LastText,
			&c.LastSenderID, &c.LastTimestamp, &c.UnreadCount); err != nil {
			return nil, errors.Wrap(err, "scan conversation")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Endpoints resolves the sender and recipient of a stored message.
// Read receipts route back to the sender and are only honored from the
// recipient.
func (s *Store) Endpoints(ctx context.Context, messageID int64) (int64, int64, error) {
	var sender, recipient int64
	err := s.pool.QueryRow(ctx,
		`SELECT sender_id, recipient_id FROM messages WHERE id = $1`, messageID).
		Scan(&sender, &recipient)
	if err != nil {
		return 0, 0, errors.Wrap(err, "find message endpoints")
	}
	return sender, recipient, nil
}

// MarkRead flips every unread message from sender to recipient.
// Idempotent: the filter only matches rows still unread.
func (s *Store) MarkRead(ctx context.Context, recipient, sender int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE messages SET is_read = TRUE
		 WHERE recipient_id = $1 AND sender_id = $2 AND is_read = FALSE`,
		recipient, sender)
	return errors.Wrap(err, "mark read")
}

// UnreadCount counts unread messages for the directed pair.
func (s *Store) UnreadCount(ctx context.Context, recipient, sender int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE recipient_id = $1 AND sender_id = $2 AND is_read = FALSE`,
		recipient, sender).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count unread")
	}
	return n, nil
}
