package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/internal/tools"
)

type handlerResponse struct {
	Code int
	Body interface{}
	Err  error
}

type returnHandler func(http.ResponseWriter, *http.Request) *handlerResponse

// ListToolsResponse is the body of GET /tools
type ListToolsResponse struct {
	Tools []tools.Tool `json:"tools"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status string `json:"status"`
	Tools  int    `json:"tools"`
}

// NewHTTPHandler serves the registry over HTTP. accessLog receives one
// combined-format line per request; gatherer backs /metrics and may be nil.
func NewHTTPHandler(reg *tools.Registry, gatherer prometheus.Gatherer, accessLog io.Writer, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	// promhttp negotiates its own compression, so only JSON routes are wrapped
	m := func(h returnHandler) http.Handler {
		return handlers.CompressHandler(errorLogMiddleware(jsonMiddleware(h), log))
	}

	r := mux.NewRouter()
	r.Path("/tools").Methods(http.MethodGet).Handler(m(handleListTools(reg)))
	r.Path("/tools/{name}").Methods(http.MethodPost).Handler(m(handleCallTool(reg)))
	r.Path("/healthz").Methods(http.MethodGet).Handler(m(handleHealth(reg)))
	if gatherer != nil {
		r.Path("/metrics").Methods(http.MethodGet).Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.NotFoundHandler = m(notFoundHandler)
	r.MethodNotAllowedHandler = m(methodNotAllowedHandler)

	h := otelhttp.NewHandler(r, "netpilot.http")
	if accessLog != nil {
		h = handlers.CombinedLoggingHandler(accessLog, h)
	}
	return h
}

// ListenAndServe runs h on addr until ctx is cancelled, then drains
// in-flight requests for up to five seconds.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("tool server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func handleListTools(reg *tools.Registry) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		return &handlerResponse{Code: http.StatusOK, Body: &ListToolsResponse{Tools: reg.Tools()}}
	}
}

func handleHealth(reg *tools.Registry) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		return &handlerResponse{Code: http.StatusOK, Body: &HealthResponse{Status: "ok", Tools: len(reg.Tools())}}
	}
}

func handleCallTool(reg *tools.Registry) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		name := mux.Vars(r)["name"]
		if _, ok := reg.Lookup(name); !ok {
			return handleError(http.StatusNotFound, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("unknown tool %q", name)))
		}

		args := make(map[string]interface{})
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return handleError(http.StatusBadRequest, err)
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &args); err != nil {
				return handleError(http.StatusBadRequest, apperrors.InvalidRequest(apperrors.ComponentTools, "arguments must be a JSON object: "+err.Error()))
			}
		}

		result, err := reg.Call(r.Context(), name, args)
		if err != nil {
			return handleError(statusFor(err), err)
		}
		return &handlerResponse{Code: http.StatusOK, Body: result}
	}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) *handlerResponse {
	return handleError(http.StatusNotFound, errors.New("no such endpoint"))
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) *handlerResponse {
	return handleError(http.StatusMethodNotAllowed, fmt.Errorf("%s not allowed", r.Method))
}

// handleError embeds err the same way the registry does
func handleError(code int, err error) *handlerResponse {
	return &handlerResponse{Code: code, Body: tools.NewErrorObject(err), Err: err}
}

func statusFor(err error) int {
	e, ok := apperrors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Type {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeRenderEncodingUnsupported:
		return http.StatusBadRequest
	case apperrors.ErrorTypeSourceUnavailable, apperrors.ErrorTypeVerificationInconclusive:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func jsonMiddleware(next returnHandler) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		var resp *handlerResponse

		if r.Method == http.MethodPost && r.ContentLength != 0 {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				resp = handleError(http.StatusUnsupportedMediaType, errors.New("Content-Type must be application/json"))
			}
		}
		if resp == nil {
			resp = next(w, r)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.Code)
		if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
			resp.Err = fmt.Errorf("encode response: %w", err)
		}
		return resp
	}
}

func errorLogMiddleware(next returnHandler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := next(w, r)
		if resp.Err != nil {
			log.WithFields(map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
				"code":   resp.Code,
				"error":  resp.Err.Error(),
			}).Warn("request failed")
		}
	})
}
