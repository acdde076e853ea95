// Package api exposes the playback commands over HTTP for the chat gateway.
// Command-text parsing and user-facing formatting stay on the gateway side;
// this surface speaks structured JSON only.
package api

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/jukebox-platform/services/player/internal/engine"
)

// Routes mounts the per-tenant command endpoints.
func Routes(r chi.Router, reg *engine.Registry, log *zap.Logger) {
	h := &handlers{reg: reg, log: log}

	r.Route("/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Post("/join", h.join)
		r.Post("/leave", h.leave)
		r.Post("/queue", h.enqueue)
		r.Get("/queue", h.listQueue)
		r.Delete("/queue/{index}", h.removeAt)
		r.Post("/skip", h.skip)
		r.Post("/stop", h.stop)
		r.Post("/pause", h.pause)
		r.Post("/resume", h.resume)
		r.Post("/repeat", h.toggleRepeat)
		r.Get("/now", h.nowPlaying)
		r.Post("/voice-disconnect", h.voiceDisconnect)
	})
}
