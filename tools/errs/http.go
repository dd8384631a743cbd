package errs

import (
	"errors"
	"net/http"
)

// HTTPStatus maps a coded error onto the HTTP status space for the
// request/response surface. Unknown errors read as infrastructure.
func HTTPStatus(err error) int {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError
	}
	switch {
	case ce.Code >= 1000 && ce.Code < 2000:
		return http.StatusUnauthorized
	case ce.Code == CodeAlreadyFriends || ce.Code == CodeDuplicateReq:
		return http.StatusConflict
	case ce.Code >= 2000 && ce.Code < 3000:
		return http.StatusBadRequest
	case ce.Code >= 3000 && ce.Code < 4000:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AsCode normalizes any error to a CodeError for the response body,
// hiding infrastructure detail behind the generic failure.
func AsCode(err error) *CodeError {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	return ErrInfra
}
