package services

import "context"

// ProgressFunc receives coarse progress updates from a running lookup.
type ProgressFunc func(percent int, message string)

type progressKey struct{}

// WithProgress attaches fn to ctx so long lookups can report where they are.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress forwards an update to the reporter attached to ctx, if any.
func ReportProgress(ctx context.Context, percent int, message string) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		fn(percent, message)
	}
}
