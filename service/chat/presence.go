package chat

// Presence status values carried in user_status_update frames.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Friend-request event kinds carried in friend_request_update frames.
const (
	EventRequestSent     = "sent"
	EventRequestAccepted = "accepted"
	EventRequestRejected = "rejected"
)

// Broadcaster fans presence and friend-graph events out to live
// connections. Delivery is best-effort: offline targets are dropped, not
// queued.
type Broadcaster struct {
	reg *Registry
}

func NewBroadcaster(reg *Registry) *Broadcaster {
	return &Broadcaster{reg: reg}
}

// UserStatus announces an online/offline transition to every live
// connection except the user's own (they already know).
func (b *Broadcaster) UserStatus(userID int64, username, status string) {
	payload := BuildUserStatus(userID, username, status)
	b.reg.Broadcast(payload, func(c *Client) bool { return c.UserID != userID })
}

// FriendRequestUpdate notifies both parties of a friend-graph change.
// Only the sender's and recipient's own connections receive it.
func (b *Broadcaster) FriendRequestUpdate(senderID int64, senderName string, recipientID int64, recipientName, kind string) {
	payload := BuildFriendRequestUpdate(senderName, recipientName, kind)
	b.reg.Send(senderID, payload)
	b.reg.Send(recipientID, payload)
}
