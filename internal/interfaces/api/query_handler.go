package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/FreePeak/db-query-proxy/internal/auth"
	"github.com/FreePeak/db-query-proxy/internal/domain/entities"
	"github.com/FreePeak/db-query-proxy/internal/logger"
	"github.com/FreePeak/db-query-proxy/internal/usecase"
)

// maxBodyBytes bounds the size of a query request body
const maxBodyBytes = 1 << 20

const (
	msgAuthRequired = "Missing or invalid Authorization header"
	msgAuthInvalid  = "Invalid or expired token"
)

// QueryExecutor runs a validated operation
type QueryExecutor interface {
	Execute(ctx context.Context, op entities.Operation) (*usecase.Result, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorBody is the error member of the response envelope
type ErrorBody struct {
	Message string `json:"message"`
}

// Response is the envelope returned for every query request
type Response struct {
	Data  interface{} `json:"data"`
	Error *ErrorBody  `json:"error"`
	Count *int64      `json:"count,omitempty"`
}

// QueryHandler serves POST /query
type QueryHandler struct {
	executor QueryExecutor
	verifier auth.Verifier
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(executor QueryExecutor, verifier auth.Verifier) *QueryHandler {
	return &QueryHandler{
		executor: executor,
		verifier: verifier,
	}
}

// ServeHTTP handles one query request
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, entities.ErrInvalidBody.Error())
		return
	}

	req, err := entities.DecodeRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Table == "" {
		writeError(w, http.StatusBadRequest, entities.ErrMissingTable.Error())
		return
	}

	action, err := entities.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if action.Mutating() {
		identity, err := h.authenticate(ctx, r.Header.Get("Authorization"))
		if err != nil {
			if errors.Is(err, auth.ErrAuthRequired) {
				writeError(w, http.StatusUnauthorized, msgAuthRequired)
			} else {
				writeError(w, http.StatusUnauthorized, msgAuthInvalid)
			}
			return
		}
		logger.With(logger.Fields{
			"uid":    identity.UID,
			"action": string(action),
			"table":  req.Table,
		}).Info("Authorized mutating query")
		ctx = auth.WithIdentity(ctx, identity)
	}

	op, err := req.Operation()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	result, err := h.executor.Execute(ctx, op)
	if err != nil {
		var backend *usecase.BackendError
		switch {
		case entities.IsClientError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &backend):
			logger.Error("Query on %s failed: %v", op.Target(), err)
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			logger.Error("Query on %s could not be prepared", op.Target())
			logger.ErrorWithStack(err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Debug("%s on %s completed in %s", op.Action(), op.Target(), time.Since(start))
	writeJSON(w, http.StatusOK, Response{Data: result.Data, Count: result.Count})
}

func (h *QueryHandler) authenticate(ctx context.Context, header string) (*auth.Identity, error) {
	token, err := auth.BearerToken(header)
	if err != nil {
		return nil, err
	}
	if h.verifier == nil {
		return nil, auth.ErrAuthInvalid
	}

	identity, err := h.verifier.Verify(ctx, token)
	if err != nil {
		logger.Warn("Rejected bearer token: %v", err)
		return nil, auth.ErrAuthInvalid
	}
	return identity, nil
}

// HealthHandler serves GET /health
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// ServeHTTP reports 200 when the store answers a ping, 503 otherwise
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		logger.Warn("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Error: &ErrorBody{Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}
