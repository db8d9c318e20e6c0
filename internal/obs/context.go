package obs

import "context"

type ctxKey int

const routePatternKey ctxKey = iota

// WithRoutePattern records the matched router pattern so downstream
// middleware can label metrics and spans without re-resolving the route.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey, pattern)
}

// RoutePatternFromContext returns the recorded pattern, or "" when none was set.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	pattern, _ := ctx.Value(routePatternKey).(string)
	return pattern
}
