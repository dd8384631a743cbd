package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"linkchat/logger"
	"linkchat/tools/ids"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// extractToken pulls the handshake credential: explicit query field
// first, then Authorization header, then cookie. First hit wins.
func extractToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return authz
	}
	if t, err := c.Cookie("access_token"); err == nil {
		return t
	}
	return ""
}

// HandleWS runs one connection through its lifecycle:
// Connecting -> Authenticated -> Streaming -> Closed.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	// Connecting: the handshake credential decides whether the state
	// machine ever reaches Authenticated. Failure closes the transport
	// with a policy violation and leaves no state behind.
	user, err := s.auth.Authenticate(c.Request.Context(), extractToken(c))
	if err != nil {
		logger.Infof("[ws] auth rejected: %v", err)
		deadline := time.Now().Add(s.writeDeadline)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth failed"), deadline)
		_ = ws.Close()
		return
	}

	// Authenticated: admit the connection, tell it who it is, and fan
	// the online transition out to everyone else.
	client := NewClient(ids.GenerateString(), user.ID, user.Username, ws, s.writeDeadline)
	s.reg.Register(client)
	s.mirrorOnline(user.Username)
	logger.Infof("[ws] connected user=%s conn=%s", user.Username, client.ID)

	if err := client.write(BuildConnectionEstablished(client.ID, user.Username)); err != nil {
		s.closeConn(client)
		return
	}
	client.announced.Store(true)
	s.events.UserStatus(user.ID, user.Username, StatusOnline)

	// keep the mirror entry alive for as long as the connection is; its
	// TTL would otherwise expire under a long-lived session. The ticker
	// stops before closeConn so a late renewal cannot resurrect the key
	// after the offline delete.
	stopRenew := make(chan struct{})
	if s.mirror != nil {
		go s.renewPresence(user.Username, stopRenew)
	}

	// Streaming: frames are handled in arrival order on this goroutine,
	// one logical task per connection.
	s.readLoop(client, ws)
	close(stopRenew)

	// Closed: always evict; announce offline only when this was the
	// identity's last live connection.
	s.closeConn(client)
}

func (s *Server) readLoop(client *Client, ws *websocket.Conn) {
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ID)
			} else {
				logger.Infof("[ws] read error conn=%s err=%v", client.ID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			// Malformed frames are ignored, the stream stays up.
			logger.Debugf("[ws] bad frame conn=%s err=%v", client.ID, perr)
			continue
		}
		s.disp.Dispatch(context.Background(), client, frame)
	}
}

func (s *Server) closeConn(client *Client) {
	removed, remaining := s.reg.Unregister(client.ID)
	client.close()
	if removed == nil {
		// already evicted by a failed write, nothing left to announce
		return
	}
	logger.Infof("[ws] disconnected user=%s conn=%s remaining=%d", client.Username, client.ID, remaining)
	if remaining == 0 {
		s.mirrorOffline(client.Username)
		// no offline for a connection whose online was never announced
		if client.announced.Load() {
			s.events.UserStatus(client.UserID, client.Username, StatusOffline)
		}
	}
}

func (s *Server) renewPresence(username string, stop <-chan struct{}) {
	t := time.NewTicker(s.presenceRenew)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.mirrorOnline(username)
		}
	}
}

func (s *Server) mirrorOnline(username string) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.mirror.Online(ctx, username); err != nil {
		logger.Warnf("[ws] presence mirror online failed user=%s err=%v", username, err)
	}
}

func (s *Server) mirrorOffline(username string) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.mirror.Offline(ctx, username); err != nil {
		logger.Warnf("[ws] presence mirror offline failed user=%s err=%v", username, err)
	}
}
