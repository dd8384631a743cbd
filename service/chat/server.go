package chat

import (
	"context"
	"time"

	chatmodel "linkchat/module/chat/model"
	usermodel "linkchat/module/user/model"
)

// Authenticator validates an opaque bearer credential and resolves it to
// an identity. Owned by the auth collaborator.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*usermodel.User, error)
}

// UserResolver resolves a display handle to an identity.
type UserResolver interface {
	FindByUsername(ctx context.Context, username string) (*usermodel.User, error)
}

// FriendGraph is the slice of the friend store the router authorizes
// message frames against.
type FriendGraph interface {
	AreFriends(ctx context.Context, a, b int64) (bool, error)
}

// MessageStore is the slice of the durable message store the router
// persists and routes through.
type MessageStore interface {
	Append(ctx context.Context, sender, recipient int64, text string) (*chatmodel.Message, error)
	Endpoints(ctx context.Context, messageID int64) (sender, recipient int64, err error)
}

// PresenceMirror reflects registry state into an external store so
// request/response surfaces can answer online lookups. Best-effort; a
// nil mirror is valid.
type PresenceMirror interface {
	Online(ctx context.Context, username string) error
	Offline(ctx context.Context, username string) error
}

// Server is the message router: it owns the registry, the frame
// dispatcher, and the collaborator handles the stream handlers need.
type Server struct {
	reg      *Registry
	disp     *Dispatcher
	events   *Broadcaster
	auth     Authenticator
	users    UserResolver
	friends  FriendGraph
	messages MessageStore
	mirror   PresenceMirror

	writeDeadline time.Duration
	presenceRenew time.Duration
}

type Deps struct {
	Auth     Authenticator
	Users    UserResolver
	Friends  FriendGraph
	Messages MessageStore
	Mirror   PresenceMirror

	WriteDeadline time.Duration
	// PresenceRenew is how often a live connection refreshes its mirror
	// entry; must undercut the mirror's TTL.
	PresenceRenew time.Duration
}

func NewServer(deps Deps) *Server {
	if deps.WriteDeadline <= 0 {
		deps.WriteDeadline = 5 * time.Second
	}
	if deps.PresenceRenew <= 0 {
		deps.PresenceRenew = time.Minute
	}
	reg := NewRegistry()
	s := &Server{
		reg:           reg,
		disp:          NewDispatcher(),
		events:        NewBroadcaster(reg),
		auth:          deps.Auth,
		users:         deps.Users,
		friends:       deps.Friends,
		messages:      deps.Messages,
		mirror:        deps.Mirror,
		writeDeadline: deps.WriteDeadline,
		presenceRenew: deps.PresenceRenew,
	}
	s.registerHandlers()
	reg.SetEvictHook(func(c *Client, remaining int) {
		if remaining == 0 {
			s.mirrorOffline(c.Username)
			// a connection that died before its online broadcast went
			// out has nothing to retract
			if c.announced.Load() {
				s.events.UserStatus(c.UserID, c.Username, StatusOffline)
			}
		}
	})
	return s
}

func (s *Server) registerHandlers() {
	s.disp.Register(FrameMessage, s.handleMessage)
	s.disp.Register(FrameTyping, s.handleTyping)
	s.disp.Register(FrameReadReceipt, s.handleReadReceipt)
}

// Registry exposes the connection registry to HTTP surfaces that need
// online lookups.
func (s *Server) Registry() *Registry { return s.reg }

// Events exposes the broadcaster so friend handlers can emit
// friend_request_update events.
func (s *Server) Events() *Broadcaster { return s.events }

// Close tears down all live connections.
func (s *Server) Close() { s.reg.Close() }
