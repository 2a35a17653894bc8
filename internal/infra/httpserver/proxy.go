package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
	"github.com/bryanwahyu/audit-gateway/internal/middleware"
)

// handleProxy relays a request to the audit backend without
// interpreting the payload. Two request forms are supported:
//
//   - legacy: the backend path rides in the "path" query parameter and
//     the original method, body and remaining query parameters are
//     forwarded as-is, e.g. GET /api/proxy?path=customer/audit-status/5
//   - JSON: POST /api/proxy with {"path": "/api/...", "method": "POST",
//     "data": {...}}; data becomes the backend request body.
func (r *Router) handleProxy(w http.ResponseWriter, req *http.Request) {
	middleware.IncrementProxied()

	if req.URL.Query().Get("path") != "" {
		r.proxyLegacy(w, req)
		return
	}
	if req.Method == http.MethodPost {
		r.proxyJSON(w, req)
		return
	}
	respondError(w, http.StatusBadRequest, "missing path parameter", nil)
}

func (r *Router) proxyLegacy(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	rawPath := query.Get("path")
	query.Del("path")

	// The legacy form passes paths relative to the backend /api root.
	target := "/api/" + strings.TrimPrefix(rawPath, "/")
	if err := middleware.ValidateProxyPath(target); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable request body", nil)
		return
	}

	r.forward(w, req, req.Method, target, query, body)
}

func (r *Router) proxyJSON(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Path   string          `json:"path"`
		Method string          `json:"method"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid proxy request body", nil)
		return
	}
	if err := middleware.ValidateProxyPath(body.Path); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	method := strings.ToUpper(body.Method)
	if method == "" {
		method = http.MethodPost
	}

	r.forward(w, req, method, body.Path, nil, body.Data)
}

func (r *Router) forward(w http.ResponseWriter, req *http.Request, method, path string, query url.Values, body []byte) {
	res, err := r.client.Forward(req.Context(), method, path, query, req.Header, body)
	if err != nil {
		if errors.Is(err, domain.ErrBackendUnreachable) {
			respondError(w, http.StatusServiceUnavailable, "audit service is unavailable, please try again later", nil)
			return
		}
		log.WithError(err).WithField("path", path).Error("proxy request failed")
		respondError(w, http.StatusInternalServerError, "request failed, please try again", nil)
		return
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(res.Status)
	w.Write(res.Body)
}
