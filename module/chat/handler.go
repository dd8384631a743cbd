package chat

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkchat/logger"
	"linkchat/middleware/security"
	"linkchat/module/chat/model"
	"linkchat/tools/errs"
)

const (
	defaultHistoryLimit      = 200
	defaultConversationLimit = 50
)

// MessageReader is the slice of the message store the HTTP surface
// needs.
type MessageReader interface {
	RecentConversations(ctx context.Context, userID int64, limit int) ([]*model.ConversationSummary, error)
	History(ctx context.Context, a, b int64, limit int) ([]*model.Message, error)
	MarkRead(ctx context.Context, recipient, sender int64) error
	UnreadCount(ctx context.Context, recipient, sender int64) (int64, error)
}

type Handler struct {
	messages MessageReader
}

func NewHandler(messages MessageReader) *Handler {
	return &Handler{messages: messages}
}

func (h *Handler) Register(r gin.IRouter, authMW gin.HandlerFunc) {
	g := r.Group("/api", authMW)
	g.GET("/conversations", h.conversations)
	g.GET("/messages/:id", h.history)
	g.POST("/messages/:id/read", h.markRead)
	g.GET("/messages/:id/unread", h.unreadCount)
}

func (h *Handler) conversations(c *gin.Context) {
	me := security.CurrentUser(c)
	limit := queryLimit(c, defaultConversationLimit)
	convs, err := h.messages.RecentConversations(c.Request.Context(), me.ID, limit)
	if err != nil {
		logger.Errorf("list conversations failed user=%d err=%v", me.ID, err)
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// history returns the full message log with one partner, friend or not.
func (h *Handler) history(c *gin.Context) {
	me := security.CurrentUser(c)
	partner, ok := pathID(c)
	if !ok {
		return
	}
	limit := queryLimit(c, defaultHistoryLimit)
	msgs, err := h.messages.History(c.Request.Context(), me.ID, partner, limit)
	if err != nil {
		logger.Errorf("load history failed user=%d partner=%d err=%v", me.ID, partner, err)
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) markRead(c *gin.Context) {
	me := security.CurrentUser(c)
	partner, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), me.ID, partner); err != nil {
		logger.Errorf("mark read failed user=%d partner=%d err=%v", me.ID, partner, err)
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) unreadCount(c *gin.Context) {
	me := security.CurrentUser(c)
	partner, ok := pathID(c)
	if !ok {
		return
	}
	n, err := h.messages.UnreadCount(c.Request.Context(), me.ID, partner)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errs.ErrInfra.WithDetail("invalid id"))
		return 0, false
	}
	return id, true
}

func queryLimit(c *gin.Context, def int) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return def
}
