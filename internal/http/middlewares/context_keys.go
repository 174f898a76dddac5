package middlewares

type ctxKey string

// KeyUserID is used for request-scoped context.Context values handed to the
// policy layer; the Ctx* constants are gin context keys.
const KeyUserID ctxKey = "user_id"

const (
	CtxRequestID = "request_id"
	CtxJobID     = "job_id"
)
