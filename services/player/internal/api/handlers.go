package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/api"
	"github.com/example/jukebox-platform/internal/platform/httpserver"
	"github.com/example/jukebox-platform/services/player/internal/engine"
	"github.com/example/jukebox-platform/services/player/internal/resolver"
)

type handlers struct {
	reg *engine.Registry
	log *zap.Logger
}

type tenantRequest struct {
	TenantName string `json:"tenant_name"`
}

type joinRequest struct {
	tenantRequest
	ChannelID string `json:"channel_id"`
}

type enqueueRequest struct {
	tenantRequest
	Query     string `json:"query"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
}

type enqueueItemResponse struct {
	Query   string `json:"query"`
	Title   string `json:"title,omitempty"`
	Started bool   `json:"started"`
	Queued  bool   `json:"queued"`
	Error   string `json:"error,omitempty"`
}

type queueItemResponse struct {
	Position        int    `json:"position"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	CanonicalID     string `json:"canonical_id"`
}

// eng loads (or lazily creates) the tenant's engine for a command request.
func (h *handlers) eng(w http.ResponseWriter, r *http.Request, tenantName string) (*engine.Engine, string, bool) {
	rid := httpserver.RequestIDFromContext(r.Context())
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	if tenantID == "" {
		api.BadRequest(w, "TENANT_REQUIRED", "tenant id required", rid, nil)
		return nil, rid, false
	}
	eng, err := h.reg.Get(r.Context(), tenantID, tenantName)
	if err != nil {
		h.log.Error("engine create failed", zap.String("tenant", tenantID), zap.Error(err))
		api.Internal(w, rid)
		return nil, rid, false
	}
	return eng, rid, true
}

func decode[T any](w http.ResponseWriter, r *http.Request, rid string) (T, bool) {
	var body T
	if r.Body == nil || r.ContentLength == 0 {
		return body, true
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.BadRequest(w, "BAD_JSON", "invalid request body", rid, nil)
		return body, false
	}
	return body, true
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())
	body, ok := decode[joinRequest](w, r, rid)
	if !ok {
		return
	}
	if strings.TrimSpace(body.ChannelID) == "" {
		api.BadRequest(w, "CHANNEL_REQUIRED", "channel_id required", rid, nil)
		return
	}
	eng, rid, ok := h.eng(w, r, body.TenantName)
	if !ok {
		return
	}
	if err := eng.Join(r.Context(), body.ChannelID); err != nil {
		api.WriteError(w, http.StatusBadGateway, "JOIN_FAILED", "could not join channel", rid, nil)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"joined": true, "channel_id": body.ChannelID})
}

func (h *handlers) leave(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	tenantID := chi.URLParam(r, "tenantID")
	if err := eng.Leave(r.Context()); err != nil && !errors.Is(err, engine.ErrClosed) {
		h.log.Warn("leave failed", zap.String("tenant", tenantID), zap.Error(err))
	}
	h.reg.Remove(tenantID)
	api.WriteJSON(w, http.StatusOK, map[string]any{"left": true})
}

func (h *handlers) enqueue(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())
	body, ok := decode[enqueueRequest](w, r, rid)
	if !ok {
		return
	}
	eng, rid, ok := h.eng(w, r, body.TenantName)
	if !ok {
		return
	}

	// An empty query means "start draining the existing queue".
	if strings.TrimSpace(body.Query) == "" {
		started, err := eng.Play(r.Context())
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"started": started})
		return
	}

	results := eng.Enqueue(r.Context(), body.Query, engine.Actor{ID: body.ActorID, Name: body.ActorName})
	out := make([]enqueueItemResponse, 0, len(results))
	for _, res := range results {
		item := enqueueItemResponse{
			Query:   res.Query,
			Title:   res.Title,
			Started: res.Started,
			Queued:  res.Err == nil && !res.Started,
		}
		if res.Err != nil {
			if errors.Is(res.Err, resolver.ErrNotFound) {
				item.Error = "no result for this query"
			} else {
				item.Error = "could not add this item"
			}
		}
		out = append(out, item)
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (h *handlers) listQueue(w http.ResponseWriter, r *http.Request) {
	eng, rid, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	items, err := eng.ListQueue(r.Context())
	if err != nil {
		api.Internal(w, rid)
		return
	}
	out := make([]queueItemResponse, 0, len(items))
	for i, item := range items {
		out = append(out, queueItemResponse{
			Position:        i,
			Title:           item.Title,
			DurationSeconds: item.DurationSeconds,
			CanonicalID:     item.CanonicalID,
		})
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *handlers) removeAt(w http.ResponseWriter, r *http.Request) {
	eng, rid, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		api.BadRequest(w, "BAD_INDEX", "index must be an integer", rid, nil)
		return
	}
	removed, err := eng.RemoveAt(r.Context(), index)
	if err != nil {
		api.Internal(w, rid)
		return
	}
	if !removed {
		api.NotFound(w, "INDEX_OUT_OF_BOUNDS", "no item at that position", rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"removed": true})
}

func (h *handlers) skip(w http.ResponseWriter, r *http.Request) {
	eng, rid, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	skipped, err := eng.Skip(r.Context())
	if err != nil {
		api.Internal(w, rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"skipped": skipped})
}

func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	eng, rid, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	if err := eng.Stop(r.Context()); err != nil {
		api.Internal(w, rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"stopped": true})
}

func (h *handlers) pause(w http.ResponseWriter, r *http.Request) {
	eng, rid, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	paused, err := eng.Pause(r.Context())
	if err != nil {
		api.Internal(w, rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"paused": paused})
}

func (h *handlers) resume(w http.ResponseWriter, r *http.Request) {
	eng, rid, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	resumed, err := eng.Resume(r.Context())
	if err != nil {
		api.Internal(w, rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"resumed": resumed})
}

func (h *handlers) toggleRepeat(w http.ResponseWriter, r *http.Request) {
	eng, rid, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	on, err := eng.ToggleRepeat(r.Context())
	if err != nil {
		h.log.Error("repeat flag persist failed", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"repeat": on})
}

func (h *handlers) nowPlaying(w http.ResponseWriter, r *http.Request) {
	eng, rid, ok := h.eng(w, r, "")
	if !ok {
		return
	}
	item, state, playing, err := eng.NowPlaying(r.Context())
	if err != nil {
		api.Internal(w, rid)
		return
	}
	resp := map[string]any{"state": state.String()}
	if playing {
		resp["item"] = queueItemResponse{
			Title:           item.Title,
			DurationSeconds: item.DurationSeconds,
			CanonicalID:     item.CanonicalID,
		}
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// voiceDisconnect is the gateway's notification that the tenant's voice
// connection dropped; the engine instance is torn down like on leave.
func (h *handlers) voiceDisconnect(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	if eng, ok := h.reg.Peek(tenantID); ok {
		if err := eng.Leave(r.Context()); err != nil && !errors.Is(err, engine.ErrClosed) {
			h.log.Warn("teardown on voice disconnect", zap.String("tenant", tenantID), zap.Error(err))
		}
		h.reg.Remove(tenantID)
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"removed": true})
}
