package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"bayesnet/internal/codec"
	"bayesnet/internal/domain"
	"bayesnet/internal/inference"
	"bayesnet/internal/loader"
	"bayesnet/internal/repository"
	"bayesnet/internal/service"
)

// maxBodySize bounds uploaded network documents
const maxBodySize = 4 << 20

// NetworkHandler handles network and query API requests
type NetworkHandler struct {
	svc    *service.NetworkService
	logger *zap.Logger
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(svc *service.NetworkService, logger *zap.Logger) *NetworkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkHandler{svc: svc, logger: logger}
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NetworkDetail is the GET /api/networks/{name} response
type NetworkDetail struct {
	Network          *codec.Document `json:"network"`
	TopologicalOrder []string        `json:"topological_order"`
}

// QueryBody is the POST /api/networks/{name}/query request
type QueryBody struct {
	Variable  string          `json:"variable"`
	Evidence  domain.Evidence `json:"evidence,omitempty"`
	Algorithm string          `json:"algorithm,omitempty"`
}

// ListNetworks returns a summary of every registered network
func (h *NetworkHandler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.List(), http.StatusOK)
}

// ImportNetwork registers a network document from the request body. The
// format comes from ?format= or the Content-Type header, JSON by default.
func (h *NetworkHandler) ImportNetwork(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, "Failed to read request body", err.Error(), http.StatusBadRequest)
		return
	}

	var importer codec.Importer = codec.ForContentType(r.Header.Get("Content-Type"))
	if format := r.URL.Query().Get("format"); format != "" {
		c, err := codec.ForFormat(format)
		if err != nil {
			h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
			return
		}
		importer = c
	}

	net, err := h.svc.Import(r.Context(), data, importer, "api")
	if err != nil {
		h.logger.Warn("network import failed", zap.Error(err))
		h.writeError(w, "Failed to import network", err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, h.detail(net), http.StatusCreated)
}

// GetNetwork returns a network document with its topological order
func (h *NetworkHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	net, err := h.svc.Get(r.PathValue("name"))
	if err != nil {
		h.writeError(w, "Not found", err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, h.detail(net), http.StatusOK)
}

func (h *NetworkHandler) detail(net *domain.Network) NetworkDetail {
	// registered networks are validated, so the order exists
	order, _ := net.TopologicalOrder()
	return NetworkDetail{Network: codec.FromNetwork(net), TopologicalOrder: order}
}

// DeleteNetwork removes a network and its history
func (h *NetworkHandler) DeleteNetwork(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.svc.Remove(r.Context(), name); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("failed to delete network", zap.String("network", name), zap.Error(err))
		}
		h.writeError(w, "Failed to delete network", err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportNetwork writes a network as JSON or YAML (?format=, default json)
func (h *NetworkHandler) ExportNetwork(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	var buf bytes.Buffer
	if err := h.svc.Export(r.PathValue("name"), format, &buf); err != nil {
		status := statusFor(err)
		if errors.Is(err, service.ErrNetworkNotFound) {
			status = http.StatusNotFound
		} else if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		h.writeError(w, "Failed to export network", err.Error(), status)
		return
	}

	contentType := "application/json"
	if format != "json" {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// QueryNetwork computes a posterior distribution
func (h *NetworkHandler) QueryNetwork(w http.ResponseWriter, r *http.Request) {
	var body QueryBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.Query(r.Context(), service.QueryRequest{
		Network:   r.PathValue("name"),
		Variable:  body.Variable,
		Evidence:  body.Evidence,
		Algorithm: body.Algorithm,
	})
	if err != nil {
		h.writeError(w, "Query failed", err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, res, http.StatusOK)
}

// ListQueries returns the query history, newest first
func (h *NetworkHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.QueryFilter{
		Network:  q.Get("network"),
		Variable: q.Get("variable"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, "Invalid limit", "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	records, err := h.svc.History(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list queries", zap.Error(err))
		h.writeError(w, "Failed to list queries", err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*domain.QueryRecord{}
	}

	h.writeJSON(w, records, http.StatusOK)
}

// GetQuery returns one recorded query
func (h *NetworkHandler) GetQuery(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.HistoryRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, "Not found", err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, rec, http.StatusOK)
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, loader.ErrInvalidDocument),
		errors.Is(err, loader.ErrInvalidQuery),
		errors.Is(err, loader.ErrInvalidEvidence),
		errors.Is(err, inference.ErrUnknownAlgorithm),
		errors.Is(err, inference.ErrQueryVariableNotFound),
		domain.IsStructural(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *NetworkHandler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", zap.Error(err))
	}
}

func (h *NetworkHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}
