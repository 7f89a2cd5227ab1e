// Package handler implements the HTTP API of bayesnet.
//
// # Routes
//
//	GET    /api/networks                  list registered networks
//	POST   /api/networks                  import a JSON or YAML network document
//	GET    /api/networks/{name}           document and topological order
//	DELETE /api/networks/{name}           remove a network and its history
//	GET    /api/networks/{name}/export    export as ?format=json|yaml
//	POST   /api/networks/{name}/query     {variable, evidence, algorithm}
//	GET    /api/queries                   history, ?network=&variable=&limit=
//	GET    /api/queries/{id}              one history record
//	GET    /events                        server-sent events
//	GET    /metrics                       prometheus metrics
//
// Errors are returned as JSON with {error, details}. Invalid documents and
// queries map to 400, unknown networks and records to 404.
//
// Middleware provides panic recovery, CORS and request logging.
package handler
