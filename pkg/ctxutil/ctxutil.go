// Package ctxutil carries request-scoped identifiers through context.Context.
package ctxutil

import "context"

type ctxKey string

const (
	subjectKey   ctxKey = "subject"
	requestIDKey ctxKey = "request_id"
)

// WithSubject stores the verified token subject in the context.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey, sub)
}

// SubjectFromCtx returns the verified subject.
// Returns "" and false if the value is missing or empty.
func SubjectFromCtx(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
