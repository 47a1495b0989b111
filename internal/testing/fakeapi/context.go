package fakeapi

import "context"

type bodyKey struct{}

// withBody carries the decoded request body past the recording middleware,
// which has already drained r.Body
func withBody(ctx context.Context, body map[string]any) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func bodyFrom(ctx context.Context) map[string]any {
	body, _ := ctx.Value(bodyKey{}).(map[string]any)
	return body
}
