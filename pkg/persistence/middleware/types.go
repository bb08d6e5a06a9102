package middleware

import "github.com/aretw0/triage/pkg/ports"

// Middleware allows wrapping an AuditStore to add behavior.
type Middleware func(ports.AuditStore) ports.AuditStore

// Chain applies middlewares so that the first one is outermost.
func Chain(store ports.AuditStore, mws ...Middleware) ports.AuditStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
