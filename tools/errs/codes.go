package errs

// Error code ranges: 1xxx auth, 2xxx relationship, 3xxx lookup,
// 5xxx infrastructure. Stream handlers drop instead of surfacing
// 2xxx/3xxx so peers cannot infer relationship state from error
// differences.
const (
	CodeTokenInvalid   = 1001
	CodeTokenExpired   = 1002
	CodeTokenMissing   = 1003
	CodeUnauthorized   = 1004
	CodeSelfRequest    = 2001
	CodeAlreadyFriends = 2002
	CodeDuplicateReq   = 2003
	CodeNotFriends     = 2004
	CodeNoSuchRequest  = 2005
	CodeNotFound       = 3001
	CodeInfra          = 5001
)

var (
	ErrTokenInvalid   = NewCodeError(CodeTokenInvalid, "invalid token")
	ErrTokenExpired   = NewCodeError(CodeTokenExpired, "token expired")
	ErrTokenMissing   = NewCodeError(CodeTokenMissing, "missing token")
	ErrUnauthorized   = NewCodeError(CodeUnauthorized, "unauthorized")
	ErrSelfRequest    = NewCodeError(CodeSelfRequest, "cannot friend yourself")
	ErrAlreadyFriends = NewCodeError(CodeAlreadyFriends, "already friends")
	ErrDuplicateReq   = NewCodeError(CodeDuplicateReq, "request already sent")
	ErrNotFriends     = NewCodeError(CodeNotFriends, "not friends")
	ErrNoSuchRequest  = NewCodeError(CodeNoSuchRequest, "no such friend request")
	ErrNotFound       = NewCodeError(CodeNotFound, "not found")
	ErrInfra          = NewCodeError(CodeInfra, "internal error")
)
