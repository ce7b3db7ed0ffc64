package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// Actor describes the resolved identity attached to a request.
type Actor struct {
	UserID int64
	Role   string
}

// ActorFromContext returns the actor for the request, or false when the
// session is anonymous.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	sess := SessionFromContext(ctx)
	if !sess.Authenticated() {
		return Actor{}, false
	}
	return Actor{UserID: sess.UserID(), Role: sess.Role()}, true
}
