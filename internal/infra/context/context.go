// Package context carries request-scoped values (trace id, session claims)
// through the service and logging layers.
package context

type contextKey string
