package service

import "context"

type baseURLKey struct{}

// WithBaseURL attaches the scheme://host the request arrived on. Image URLs
// built under ctx are made absolute with it.
func WithBaseURL(ctx context.Context, base string) context.Context {
	return context.WithValue(ctx, baseURLKey{}, base)
}

// BaseURLFromContext returns the base URL set by WithBaseURL, or "".
func BaseURLFromContext(ctx context.Context) string {
	if base, ok := ctx.Value(baseURLKey{}).(string); ok {
		return base
	}
	return ""
}
