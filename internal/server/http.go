package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/auth"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/core"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/metrics"
)

// defaultMaxBodyBytes fits ten base64 documents of a few MB each.
const defaultMaxBodyBytes = 64 << 20

// HTTPOptions wires optional collaborators into the HTTP surface.
type HTTPOptions struct {
	Metrics      *metrics.Metrics
	Health       func(ctx context.Context) error
	MaxBodyBytes int64
}

type httpHandler struct {
	pipeline Pipeline
	opts     HTTPOptions
	logger   *slog.Logger
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// NewHTTPHandler builds the chi router for the extraction API.
func NewHTTPHandler(p Pipeline, opts HTTPOptions, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	h := &httpHandler{pipeline: p, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestContext)
	r.Use(h.accessLog)
	r.Use(h.recoverJSON)

	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/analyze-documents", h.analyzeDocuments)
		r.Post("/mailbox", h.mailbox)
	})
	return r
}

func (h *httpHandler) analyzeDocuments(w http.ResponseWriter, r *http.Request) {
	var req core.AnalyzeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.pipeline.AnalyzeDocuments(r.Context(), credential(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *httpHandler) mailbox(w http.ResponseWriter, r *http.Request) {
	var req MailboxRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	switch req.Action {
	case ActionFetchInvoices:
		out, err := h.pipeline.FetchInvoices(r.Context(), credential(r), req.fetch())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case ActionCreateAuthLink:
		link, err := h.pipeline.CreateAuthLink(r.Context(), credential(r), req.authLink())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, link)
	}
}

func (h *httpHandler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.opts.Health != nil {
		if err := h.opts.Health(r.Context()); err != nil {
			h.logger.Warn("http.healthz.degraded", "req_id", common.RequestIDFromContext(r.Context()), "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *httpHandler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.Validationf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return common.Validationf("invalid JSON body: %v", err)
	}
	return nil
}

func (h *httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	reqID := common.RequestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		h.logger.Error("http.request_failed", "req_id", reqID, "path", r.URL.Path, "status", status, "error", err)
	} else {
		h.logger.Warn("http.request_rejected", "req_id", reqID, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Code: common.Code(err), Message: common.Message(err), RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// credential returns the bearer token, or "" so authorization fails downstream.
func credential(r *http.Request) string {
	tok, _ := auth.BearerToken(r.Header.Get("Authorization"))
	return tok
}

// requireAuth rejects unauthenticated callers before any body is read.
func (h *httpHandler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.pipeline.Authorize(r.Context(), credential(r)); err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestContext copies chi's request id into the shared context key and echoes it back.
func (h *httpHandler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
			r = r.WithContext(common.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *httpHandler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("http.request",
			"req_id", common.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

// recoverJSON turns a handler panic into a JSON 500 carrying the request id.
func (h *httpHandler) recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				h.logger.Error("http.panic_recovered",
					"req_id", common.RequestIDFromContext(r.Context()),
					"panic", v,
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody{
					Code:      common.CodeInternal,
					Message:   "internal error",
					RequestID: common.RequestIDFromContext(r.Context()),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
