// Package requestid carries a per-request id through a context.Context.
package requestid

import "context"

type key string

var idKey key

// NewContext returns a copy of ctx tagged with the request id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// FromContext extracts the request id set by NewContext.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey).(string)
	return id, ok
}
