// Package web is the HTTP transport: routing, middleware, content
// negotiation and response headers. All domain behavior lives behind the
// api service; this layer only translates between HTTP and api.Request /
// api.Response.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/facet-api/facet/internal/api"
	"github.com/facet-api/facet/internal/cache"
	"github.com/facet-api/facet/internal/encoding"
	"github.com/facet-api/facet/internal/negotiate"
	"github.com/facet-api/facet/internal/schema"
)

// reservedParams are query parameters with transport meaning; anything
// else is treated as a field filter.
var reservedParams = map[string]bool{
	"format":     true,
	"expand":     true,
	"page":       true,
	"limit":      true,
	"sort_by":    true,
	"sort_order": true,
	"search":     true,
}

// Handler translates HTTP requests into api service calls
type Handler struct {
	svc        *api.Service
	reg        *schema.Registry
	negotiator *negotiate.Negotiator
	logger     *zap.Logger
}

// NewHandler creates a handler
func NewHandler(svc *api.Service, reg *schema.Registry, negotiator *negotiate.Negotiator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if negotiator == nil {
		negotiator = negotiate.NewNegotiator(negotiate.AlgorithmBrotli, negotiate.AlgorithmGzip)
	}
	return &Handler{svc: svc, reg: reg, negotiator: negotiator, logger: logger}
}

// List serves GET /api/v1/{kind}
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}

	resp, apiErr := h.svc.Represent(r.Context(), req)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	h.respond(w, r, resp)
}

// Get serves GET /api/v1/{kind}/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	req.ID = chi.URLParam(r, "id")

	resp, apiErr := h.svc.Represent(r.Context(), req)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	h.respond(w, r, resp)
}

// Edge serves GET /api/v1/{kind}/{id}/{edge}
func (h *Handler) Edge(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.Edge = chi.URLParam(r, "edge")

	resp, apiErr := h.svc.Represent(r.Context(), req)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	h.respond(w, r, resp)
}

// Create serves POST /api/v1/{kind}
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	payload, apiErr := decodePayload(r)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}

	resp, apiErr := h.svc.Create(r.Context(), req, payload)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	h.respond(w, r, resp)
}

// Update serves PUT /api/v1/{kind}/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	req.ID = chi.URLParam(r, "id")
	payload, apiErr := decodePayload(r)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}

	resp, apiErr := h.svc.Update(r.Context(), req, payload)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	h.respond(w, r, resp)
}

// Delete serves DELETE /api/v1/{kind}/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	req, apiErr := h.parseRequest(r)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	req.ID = chi.URLParam(r, "id")

	resp, apiErr := h.svc.Delete(r.Context(), req)
	if apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	h.respond(w, r, resp)
}

// Health serves GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(`{"status":"ok"}`))
}

// parseRequest builds the api request common to all routes: the kind from
// the URL's plural segment, the negotiated format, and the collection
// parameters.
func (h *Handler) parseRequest(r *http.Request) (api.Request, *api.Error) {
	kind, ok := h.kindForPlural(chi.URLParam(r, "kind"))
	if !ok {
		return api.Request{}, api.PathNotFound()
	}

	format, err := requestFormat(r)
	if err != nil {
		return api.Request{}, api.Convert(err)
	}

	q := r.URL.Query()
	req := api.Request{
		Kind:     kind,
		Format:   format,
		Expand:   q.Get("expand"),
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("sort_order") == "desc",
		Search:   q.Get("search"),
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return api.Request{}, api.ParamsNotValid("page must be a positive integer")
		}
		req.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return api.Request{}, api.ParamsNotValid("limit must be a positive integer")
		}
		req.Limit = limit
	}

	for name, values := range q {
		if reservedParams[name] || len(values) == 0 {
			continue
		}
		if req.Filter == nil {
			req.Filter = make(map[string]string)
		}
		req.Filter[name] = values[0]
	}

	return req, nil
}

// kindForPlural maps the URL's plural segment onto a registered kind
func (h *Handler) kindForPlural(plural string) (string, bool) {
	for _, k := range h.reg.All() {
		if k.Plural == plural {
			return k.Name, true
		}
	}
	return "", false
}

// requestFormat resolves the representation format: an explicit format
// query parameter wins, otherwise the Accept header decides.
func requestFormat(r *http.Request) (encoding.Format, error) {
	if raw := r.URL.Query().Get("format"); raw != "" {
		return encoding.ParseFormat(raw)
	}
	return negotiate.Format(r.Header.Get("Accept")), nil
}

// decodePayload reads a JSON request body
func decodePayload(r *http.Request) (map[string]interface{}, *api.Error) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, &api.Error{
			Status: http.StatusBadRequest,
			Code:   api.CodeBodyNotValid,
			Detail: "check JSON format or fields",
		}
	}
	return payload, nil
}

// respond writes an api response: conditional handling first, then
// compression, then the body.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, resp *api.Response) {
	if resp.ETag != "" {
		w.Header().Set("ETag", resp.ETag)
		w.Header().Set("Cache-Control", "public, max-age=60, must-revalidate")
		if !resp.LastModified.IsZero() {
			w.Header().Set("Last-Modified", cache.LastModified(resp.LastModified))
		}

		if resp.Status == http.StatusOK && cache.NotModified(r, resp.ETag, resp.LastModified) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	if len(resp.Body) == 0 {
		w.WriteHeader(resp.Status)
		return
	}

	body := resp.Body
	w.Header().Set("Vary", "Accept, Accept-Encoding")
	if alg := h.negotiator.Encoding(r.Header.Get("Accept-Encoding")); alg != negotiate.AlgorithmIdentity {
		compressed, err := negotiate.Compress(body, alg)
		if err != nil {
			// Compression never fails a request; fall back to identity.
			h.logger.Warn("compression failed", zap.String("algorithm", string(alg)), zap.Error(err))
		} else {
			body = compressed
			w.Header().Set("Content-Encoding", string(alg))
		}
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)
	w.Write(body)
}
