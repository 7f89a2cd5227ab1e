package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// Routes registers the API on mux. events and metrics are optional.
func Routes(mux *http.ServeMux, h *NetworkHandler, events, metrics http.Handler) {
	mux.HandleFunc("GET /api/networks", h.ListNetworks)
	mux.HandleFunc("POST /api/networks", h.ImportNetwork)
	mux.HandleFunc("GET /api/networks/{name}", h.GetNetwork)
	mux.HandleFunc("DELETE /api/networks/{name}", h.DeleteNetwork)
	mux.HandleFunc("GET /api/networks/{name}/export", h.ExportNetwork)
	mux.HandleFunc("POST /api/networks/{name}/query", h.QueryNetwork)

	mux.HandleFunc("GET /api/queries", h.ListQueries)
	mux.HandleFunc("GET /api/queries/{id}", h.GetQuery)

	if events != nil {
		mux.Handle("GET /events", events)
	}
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

// NewServerHandler builds the full middleware-wrapped handler
func NewServerHandler(h *NetworkHandler, events, metrics http.Handler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	Routes(mux, h, events, metrics)

	return Chain(mux,
		Recover(logger),
		CORS,
		Logger(logger),
	)
}
