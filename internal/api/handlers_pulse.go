// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/mwangaza-press/geopulse/internal/logging"
	"github.com/mwangaza-press/geopulse/internal/websocket"
)

// newUpgrader builds the pulse socket upgrader from CORS config. A "*"
// origin admits any page, matching the embedded-widget deployment model.
func newUpgrader(allowedOrigins []string) *gorilla.Upgrader {
	allowAll := false
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return &gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin header.
			return origin == "" || origins[origin]
		},
	}
}

// Pulse upgrades the connection and subscribes it to the live hit
// stream.
//
// GET /api/v1/activity/pulse
func (h *Handler) Pulse(w http.ResponseWriter, r *http.Request) {
	upgrader := newUpgrader(h.cfg.Security.CORSOrigins)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("pulse upgrade rejected")
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
