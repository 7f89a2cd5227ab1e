// Package service implements the application logic of bayesnet.
//
// NetworkService sits between the HTTP handlers, the CLI and the repository.
// It keeps the registry of loaded networks, answers inference queries and
// records them in the query history.
//
// # Queries
//
// Every query builds its own engine over the shared read-only network, so
// concurrent queries never share engine statistics. Evidence values are
// coerced onto node domains and the request is validated before the engine
// runs.
//
// # Event System
//
// Network registration, removal and completed queries are published on the
// EventBus for real-time delivery to SSE clients.
//
// # Metrics
//
// Metrics registers prometheus collectors on its own registry; Handler
// serves them for the /metrics endpoint.
package service
