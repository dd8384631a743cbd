package user

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"linkchat/logger"
	"linkchat/middleware/security"
	usermodel "linkchat/module/user/model"
	"linkchat/module/user/service"
	"linkchat/tools/errs"
)

// Directory is the slice of the user store the handlers need.
type Directory interface {
	Create(ctx context.Context, username, email, passwordHash string) (*usermodel.User, error)
	FindByUsername(ctx context.Context, username string) (*usermodel.User, error)
	Search(ctx context.Context, term string, excludingID int64) ([]*usermodel.User, error)
}

// OnlineChecker answers presence lookups; the connection registry
// implements it.
type OnlineChecker interface {
	IsOnline(userID int64) bool
}

// PresenceReader answers presence lookups from the redis mirror, which
// also reflects connections held by other gateway processes. Nil means
// registry-only.
type PresenceReader interface {
	IsOnline(ctx context.Context, username string) (bool, error)
}

type Handler struct {
	users  Directory
	auth   *service.Authenticator
	online OnlineChecker
	mirror PresenceReader
}

func NewHandler(users Directory, auth *service.Authenticator, online OnlineChecker, mirror PresenceReader) *Handler {
	return &Handler{users: users, auth: auth, online: online, mirror: mirror}
}

// Register mounts the public auth routes and the authenticated user
// routes.
func (h *Handler) Register(r gin.IRouter, authMW gin.HandlerFunc) {
	r.POST("/api/signup", h.signup)
	r.POST("/api/login", h.login)

	g := r.Group("/api", authMW)
	g.GET("/users/search", h.search)
	g.GET("/users/:username/status", h.status)
}

type signupReq struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrInfra.WithDetail("invalid signup payload"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errs.ErrInfra)
		return
	}
	u, err := h.users.Create(c.Request.Context(), req.Username, req.Email, string(hash))
	if err != nil {
		logger.Warnf("signup failed username=%s err=%v", req.Username, err)
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrInfra.WithDetail("invalid login payload"))
		return
	}
	u, err := h.users.FindByUsername(c.Request.Context(), req.Username)
	if err != nil {
		// same answer for unknown user and bad password
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	token, err := h.auth.IssueToken(u.Username)
	if err != nil {
		logger.Errorf("issue token failed username=%s err=%v", u.Username, err)
		c.JSON(http.StatusInternalServerError, errs.ErrInfra)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (h *Handler) search(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusOK, gin.H{"users": []any{}})
		return
	}
	me := security.CurrentUser(c)
	users, err := h.users.Search(c.Request.Context(), term, me.ID)
	if err != nil {
		logger.Errorf("user search failed term=%q err=%v", term, err)
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) status(c *gin.Context) {
	name := c.Param("username")
	u, err := h.users.FindByUsername(c.Request.Context(), name)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), errs.AsCode(err))
		return
	}
	status := "offline"
	switch {
	case h.online.IsOnline(u.ID):
		status = "online"
	case h.mirror != nil:
		// not in the local registry; the mirror still knows about
		// connections held elsewhere
		on, err := h.mirror.IsOnline(c.Request.Context(), u.Username)
		if err != nil {
			logger.Warnf("presence mirror lookup failed user=%s err=%v", u.Username, err)
		} else if on {
			status = "online"
		}
	}
	c.JSON(http.StatusOK, gin.H{"username": u.Username, "status": status})
}
