package services

import "context"

// ensureContext guards against nil contexts from callers that predate
// context plumbing (primarily tests).
func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
