// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package services

import (
	"context"

	"github.com/mwangaza-press/geopulse/internal/websocket"
)

// PulseHubService runs the pulse hub under supervision. A restart
// begins with an empty subscriber set; clients reconnect on their own.
type PulseHubService struct {
	hub *websocket.Hub
}

// NewPulseHubService wraps the hub for the messaging layer.
func NewPulseHubService(hub *websocket.Hub) *PulseHubService {
	return &PulseHubService{hub: hub}
}

// Serve implements suture.Service.
func (s *PulseHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String identifies the service in supervisor logs.
func (s *PulseHubService) String() string {
	return "pulse-hub"
}
