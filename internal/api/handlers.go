package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/SamSjosten/FitChallenge-sub003/internal/auth"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos/responses"
	"github.com/SamSjosten/FitChallenge-sub003/internal/providers"
	"github.com/SamSjosten/FitChallenge-sub003/internal/services"
)

// HealthSyncAPI is the service surface the health handlers call
type HealthSyncAPI interface {
	GetConnectionStatus(ctx context.Context, userID string) (*dtos.ConnectionStatusResponse, error)
	Connect(ctx context.Context, userID string, req dtos.ConnectRequest) (*dtos.ConnectionStatusResponse, error)
	Disconnect(ctx context.Context, userID string) error
	TriggerSync(ctx context.Context, userID string, req dtos.SyncRequest) (*dtos.SyncResult, error)
	GetSyncHistory(ctx context.Context, userID string, limit int) ([]dtos.SyncLogView, error)
	GetRecentRecords(ctx context.Context, userID string, limit, offset int) (*dtos.RecordsPage, error)
}

type Handlers struct {
	sync HealthSyncAPI
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(sync HealthSyncAPI) *Handlers {
	return &Handlers{sync: sync}
}

// statusForError maps service errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrSyncTooSoon):
		return http.StatusTooManyRequests
	case errors.Is(err, providers.ErrCapabilityUnavailable),
		errors.Is(err, providers.ErrAuthorizationDenied),
		errors.Is(err, services.ErrNotConnected):
		return http.StatusPreconditionFailed
	case errors.Is(err, services.ErrInvalidSyncRequest), providers.IsRangeError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func userIDFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized: missing claims")
		return "", false
	}
	return userID, true
}

// decodeOptionalJSON accepts an empty body as the zero value
func decodeOptionalJSON(r *http.Request, out interface{}) error {
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// GetConnectionStatus handles GET /api/v1/health/connection
func (h *Handlers) GetConnectionStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(w, r)
		if !ok {
			return
		}

		status, err := h.sync.GetConnectionStatus(r.Context(), userID)
		if err != nil {
			logging.Error("Failed to read connection status", "user_id", userID, "error", err)
			respondWithError(w, statusForError(err), "Failed to read connection status")
			return
		}
		respondWithSuccess(w, http.StatusOK, status)
	}
}

// Connect handles POST /api/v1/health/connect
func (h *Handlers) Connect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(w, r)
		if !ok {
			return
		}

		var req dtos.ConnectRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		status, err := h.sync.Connect(r.Context(), userID, req)
		if err != nil {
			code := statusForError(err)
			if code == http.StatusInternalServerError {
				logging.Error("Failed to connect health provider", "user_id", userID, "error", err)
			}
			respondWithError(w, code, err.Error())
			return
		}
		respondWithSuccess(w, http.StatusOK, status)
	}
}

// Disconnect handles POST /api/v1/health/disconnect
func (h *Handlers) Disconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(w, r)
		if !ok {
			return
		}

		if err := h.sync.Disconnect(r.Context(), userID); err != nil {
			logging.Error("Failed to disconnect health provider", "user_id", userID, "error", err)
			respondWithError(w, statusForError(err), "Failed to disconnect")
			return
		}
		respondWithSuccess(w, http.StatusOK, &map[string]bool{"disconnected": true})
	}
}

// TriggerSync handles POST /api/v1/health/sync
//
// A cycle that opened a log and then failed answers with the error envelope
// and the failed result as data, so the caller still learns the log id.
func (h *Handlers) TriggerSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(w, r)
		if !ok {
			return
		}

		var req dtos.SyncRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := h.sync.TriggerSync(r.Context(), userID, req)
		if err != nil {
			code := statusForError(err)
			if result == nil {
				respondWithError(w, code, err.Error())
				return
			}
			responses.WriteErrorWithData(w, code, err.Error(), result)
			return
		}
		respondWithSuccess(w, http.StatusOK, result)
	}
}

// GetSyncHistory handles GET /api/v1/health/sync/history?limit=
func (h *Handlers) GetSyncHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(w, r)
		if !ok {
			return
		}

		limit, err := queryInt(r, "limit")
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}

		history, err := h.sync.GetSyncHistory(r.Context(), userID, limit)
		if err != nil {
			logging.Error("Failed to list sync history", "user_id", userID, "error", err)
			respondWithError(w, statusForError(err), "Failed to list sync history")
			return
		}
		respondWithSuccess(w, http.StatusOK, &history)
	}
}

// GetRecentRecords handles GET /api/v1/health/records?limit=&offset=
func (h *Handlers) GetRecentRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(w, r)
		if !ok {
			return
		}

		limit, err := queryInt(r, "limit")
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		offset, err := queryInt(r, "offset")
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}

		page, err := h.sync.GetRecentRecords(r.Context(), userID, limit, offset)
		if err != nil {
			logging.Error("Failed to list records", "user_id", userID, "error", err)
			respondWithError(w, statusForError(err), "Failed to list records")
			return
		}
		respondWithSuccess(w, http.StatusOK, page)
	}
}
