package bus

import (
	"context"
)

// HandlerFunc processes one envelope. Errors wrapped with
// apperrors.Permanent are final; any other error is retried
type HandlerFunc func(ctx context.Context, env Envelope) error

// Middleware decorates a HandlerFunc
type Middleware func(next HandlerFunc) HandlerFunc

// chain composes middlewares so the first one passed is the outermost
func chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
