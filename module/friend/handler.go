package friend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkchat/logger"
	"linkchat/middleware/security"
	"linkchat/module/friend/model"
	"linkchat/module/friend/service"
	usermodel "linkchat/module/user/model"
	"linkchat/service/chat"
	"linkchat/tools/errs"
)

// Graph is the friend store surface the handlers mutate and list
// through.
type Graph interface {
	SendRequest(ctx context.Context, from, to int64) (service.RequestOutcome, error)
	Accept(ctx context.Context, recipient, requester int64) error
	Reject(ctx context.Context, recipient, requester int64) error
	Cancel(ctx context.Context, requester, recipient int64) error
	Remove(ctx context.Context, a, b int64) error
	ListAccepted(ctx context.Context, userID int64) ([]*model.FriendInfo, error)
	ListIncomingPending(ctx context.Context, userID int64) ([]*model.PendingInfo, error)
	ListOutgoingPending(ctx context.Context, userID int64) ([]*model.PendingInfo, error)
	ListAllPending(ctx context.Context, userID int64) ([]*model.PendingInfo, error)
}

// UserLookup resolves partner ids for event payloads.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*usermodel.User, error)
}

// EventNotifier delivers friend_request_update events to both parties'
// live connections; the presence broadcaster implements it.
type EventNotifier interface {
	FriendRequestUpdate(senderID int64, senderName string, recipientID int64, recipientName, kind string)
}

type Handler struct {
	friends Graph
	users   UserLookup
	events  EventNotifier
}

func NewHandler(friends Graph, users UserLookup, events EventNotifier) *Handler {
	return &Handler{friends: friends, users: users, events: events}
}

func (h *Handler) Register(r gin.IRouter, authMW gin.HandlerFunc) {
	g := r.Group("/api", authMW)
	g.POST("/friend-request/send", h.send)
	g.POST("/friend-request/accept", h.accept)
	g.POST("/friend-request/reject", h.reject)
	g.DELETE("/friend-request/cancel/:id", h.cancel)
	g.DELETE("/friends/:id", h.remove)
	g.GET("/friends", h.listFriends)
	g.GET("/friend-requests", h.listIncoming)
	g.GET("/sent-friend-requests", h.listOutgoing)
	g.GET("/friend-requests/all", h.listAllPending)
}

type friendReq struct {
	FriendID int64 `json:"friend_id" binding:"required"`
}

func (h *Handler) send(c *gin.Context) {
	me := security.CurrentUser(c)
	var req friendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrInfra.WithDetail("invalid request payload"))
		return
	}
	other, err := h.users.FindByID(c.Request.Context(), req.FriendID)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	outcome, err := h.friends.SendRequest(c.Request.Context(), me.ID, other.ID)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	kind := chat.EventRequestSent
	if outcome == service.OutcomeAccepted {
		// mutual pending pair short-circuited straight to accepted
		kind = chat.EventRequestAccepted
	}
	h.events.FriendRequestUpdate(me.ID, me.Username, other.ID, other.Username, kind)
	c.JSON(http.StatusOK, gin.H{"status": kind})
}

func (h *Handler) accept(c *gin.Context) {
	h.answer(c, chat.EventRequestAccepted, func(ctx context.Context, me, other int64) error {
		return h.friends.Accept(ctx, me, other)
	})
}

func (h *Handler) reject(c *gin.Context) {
	h.answer(c, chat.EventRequestRejected, func(ctx context.Context, me, other int64) error {
		return h.friends.Reject(ctx, me, other)
	})
}

// answer handles the accept/reject pair: both act on a pending request
// from friend_id to the current user and differ only in the mutation.
func (h *Handler) answer(c *gin.Context, kind string, mutate func(ctx context.Context, me, other int64) error) {
	me := security.CurrentUser(c)
	var req friendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrInfra.WithDetail("invalid request payload"))
		return
	}
	other, err := h.users.FindByID(c.Request.Context(), req.FriendID)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	if err := mutate(c.Request.Context(), me.ID, other.ID); err != nil {
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	// event sender is the original requester, i.e. the other side
	h.events.FriendRequestUpdate(other.ID, other.Username, me.ID, me.Username, kind)
	c.JSON(http.StatusOK, gin.H{"status": kind})
}

func (h *Handler) cancel(c *gin.Context) {
	me := security.CurrentUser(c)
	other, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.friends.Cancel(c.Request.Context(), me.ID, other); err != nil {
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *Handler) remove(c *gin.Context) {
	me := security.CurrentUser(c)
	other, ok := pathID(c)
	if !ok {
		return
	}
	// history between the pair survives removal on purpose
	if err := h.friends.Remove(c.Request.Context(), me.ID, other); err != nil {
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *Handler) listFriends(c *gin.Context) {
	me := security.CurrentUser(c)
	friends, err := h.friends.ListAccepted(c.Request.Context(), me.ID)
	if err != nil {
		logger.Errorf("list friends failed user=%d err=%v", me.ID, err)
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

func (h *Handler) listIncoming(c *gin.Context) {
	h.listPending(c, func(ctx context.Context, id int64) (any, error) {
		return h.friends.ListIncomingPending(ctx, id)
	})
}

func (h *Handler) listOutgoing(c *gin.Context) {
	h.listPending(c, func(ctx context.Context, id int64) (any, error) {
		return h.friends.ListOutgoingPending(ctx, id)
	})
}

func (h *Handler) listAllPending(c *gin.Context) {
	h.listPending(c, func(ctx context.Context, id int64) (any, error) {
		return h.friends.ListAllPending(ctx, id)
	})
}

func (h *Handler) listPending(c *gin.Context, list func(ctx context.Context, id int64) (any, error)) {
	me := security.CurrentUser(c)
	requests, err := list(c.Request.Context(), me.ID)
	if err != nil {
		logger.Errorf("list pending failed user=%d err=%v", me.ID, err)
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errs.ErrInfra.WithDetail("invalid id"))
		return 0, false
	}
	return id, true
}
