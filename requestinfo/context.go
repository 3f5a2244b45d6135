package requestinfo

import "context"

// ClientInfo carries the caller attributes recorded on token rows and device
// entries. A zero value is valid: CLI and background callers simply have no
// client context.
type ClientInfo struct {
	IP        string
	UserAgent string
	RequestID string
}

type contextKey struct{}

func NewContext(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

func FromContext(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(contextKey{}).(ClientInfo)
	return info
}
