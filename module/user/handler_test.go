package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usermodel "linkchat/module/user/model"
	"linkchat/tools/errs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDirectory struct {
	byName map[string]*usermodel.User
}

func (f *fakeDirectory) Create(context.Context, string, string, string) (*usermodel.User, error) {
	return nil, errs.ErrInfra
}

func (f *fakeDirectory) FindByUsername(_ context.Context, username string) (*usermodel.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectory) Search(context.Context, string, int64) ([]*usermodel.User, error) {
	return nil, nil
}

type fakeOnline map[int64]bool

func (f fakeOnline) IsOnline(id int64) bool { return f[id] }

type fakePresence struct {
	names map[string]bool
	err   error
	calls int
}

func (f *fakePresence) IsOnline(_ context.Context, name string) (bool, error) {
	f.calls++
	return f.names[name], f.err
}

func statusHandler(online fakeOnline, mirror PresenceReader) *Handler {
	dir := &fakeDirectory{byName: map[string]*usermodel.User{
		"sam": {ID: 1, Username: "sam"},
	}}
	return NewHandler(dir, nil, online, mirror)
}

func getStatus(t *testing.T, h *Handler, username string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "username", Value: username}}
	c.Request = httptest.NewRequest(http.MethodGet, "/api/users/"+username+"/status", nil)
	h.status(c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestStatusFromRegistry(t *testing.T) {
	mirror := &fakePresence{}
	h := statusHandler(fakeOnline{1: true}, mirror)

	code, body := getStatus(t, h, "sam")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "online", body["status"])
	assert.Zero(t, mirror.calls, "registry hit skips the mirror")
}

func TestStatusFallsBackToMirror(t *testing.T) {
	// not in the local registry but mirrored online by another process
	mirror := &fakePresence{names: map[string]bool{"sam": true}}
	h := statusHandler(fakeOnline{}, mirror)

	code, body := getStatus(t, h, "sam")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, 1, mirror.calls)
}

func TestStatusOfflineEverywhere(t *testing.T) {
	h := statusHandler(fakeOnline{}, &fakePresence{})
	_, body := getStatus(t, h, "sam")
	assert.Equal(t, "offline", body["status"])
}

func TestStatusMirrorFailureReadsOffline(t *testing.T) {
	mirror := &fakePresence{err: errs.ErrInfra}
	h := statusHandler(fakeOnline{}, mirror)

	code, body := getStatus(t, h, "sam")
	assert.Equal(t, http.StatusOK, code, "mirror trouble never fails the request")
	assert.Equal(t, "offline", body["status"])
}

func TestStatusUnknownUser(t *testing.T) {
	h := statusHandler(fakeOnline{}, nil)
	code, _ := getStatus(t, h, "ghost")
	assert.Equal(t, http.StatusNotFound, code)
}
