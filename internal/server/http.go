// Package server exposes the duel service over HTTP, websockets and a gRPC
// health endpoint.
package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/magefree/mage-duel-server/internal/service"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errEmptyAction = errors.New("action body is empty")

// Handler routes the REST and websocket endpoints.
type Handler struct {
	svc    *service.Service
	hub    *Hub
	health Pinger
	logger *zap.Logger
	mux    *http.ServeMux
}

// NewHandler wires the routes. health is pinged by /healthz.
func NewHandler(svc *service.Service, hub *Hub, health Pinger, logger *zap.Logger) *Handler {
	h := &Handler{
		svc:    svc,
		hub:    hub,
		health: health,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /sessions", h.createSession)
	h.mux.HandleFunc("GET /sessions/{id}", h.getSession)
	h.mux.HandleFunc("POST /sessions/{id}/actions", h.submitAction)
	h.mux.HandleFunc("GET /sessions/{id}/ws", h.subscribe)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.logger.Debug("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeResult(w, http.StatusBadRequest, invalid(err))
		return
	}
	res := h.svc.CreateSession(r.Context(), req)
	status := statusFor(res)
	if res.Success {
		status = http.StatusCreated
	}
	writeResult(w, status, res)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	res := h.svc.GetSession(r.Context(), r.PathValue("id"))
	writeResult(w, statusFor(res), res)
}

func (h *Handler) submitAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeResult(w, http.StatusBadRequest, invalid(err))
		return
	}
	action, err := decodeAction(body)
	if err != nil {
		writeResult(w, http.StatusBadRequest, invalid(err))
		return
	}
	res := h.svc.Dispatch(r.Context(), r.PathValue("id"), action)
	writeResult(w, statusFor(res), res)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeSession(w, r, r.PathValue("id"))
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps a result code to an HTTP status. Rule violations are
// reported as 409 since the request conflicts with the current game state.
func statusFor(res service.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeIllegalAction, service.CodeConflict:
		return http.StatusConflict
	case service.CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func invalid(err error) service.Result {
	return service.Result{Code: service.CodeInvalidRequest, Message: err.Error()}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeResult(w http.ResponseWriter, status int, res service.Result) {
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
