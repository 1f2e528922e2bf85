// Package middleware decorates a session store with cross-cutting
// persistence concerns such as encryption at rest and PII masking.
package middleware

import "github.com/wyrdbound/grimoire/pkg/ports"

// Middleware wraps a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain applies middlewares so the first one listed sees calls first.
func Chain(store ports.StateStore, middlewares ...Middleware) ports.StateStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
