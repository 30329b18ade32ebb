// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package models

import (
	"testing"

	json "github.com/goccy/go-json"
)

func TestLenientFloatUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		set   bool
		value float64
	}{
		{"number", `-6.7924`, true, -6.7924},
		{"integer", `39`, true, 39},
		{"numeric string", `"39.2083"`, true, 39.2083},
		{"padded string", `"  -6.79  "`, false, 0},
		{"garbage string", `"not-a-number"`, false, 0},
		{"null", `null`, false, 0},
		{"bool", `true`, false, 0},
		{"object", `{"lat": 1}`, false, 0},
		{"array", `[1,2]`, false, 0},
		{"empty string", `""`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f LenientFloat
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("UnmarshalJSON returned error: %v", err)
			}
			if f.Set != tt.set {
				t.Errorf("Set = %v, want %v", f.Set, tt.set)
			}
			if f.Set && f.Value != tt.value {
				t.Errorf("Value = %g, want %g", f.Value, tt.value)
			}
		})
	}
}

func TestLenientIntUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		set   bool
		value int64
	}{
		{"number", `42`, true, 42},
		{"float truncates", `42.9`, true, 42},
		{"numeric string", `"17"`, true, 17},
		{"float string truncates", `"17.5"`, true, 17},
		{"garbage", `"soon"`, false, 0},
		{"null", `null`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var i LenientInt
			if err := json.Unmarshal([]byte(tt.input), &i); err != nil {
				t.Fatalf("UnmarshalJSON returned error: %v", err)
			}
			if i.Set != tt.set {
				t.Errorf("Set = %v, want %v", i.Set, tt.set)
			}
			if i.Set && i.Value != tt.value {
				t.Errorf("Value = %d, want %d", i.Value, tt.value)
			}
		})
	}
}

func TestTrackRequestLenientBody(t *testing.T) {
	// A malformed coordinate must not reject the request body.
	body := `{"journal_id": "3", "article_id": 101, "lat": "not-a-number", "lng": 39.2, "event_type": "download"}`

	var req TrackRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("body should decode: %v", err)
	}

	if !req.JournalID.Set || req.JournalID.Value != 3 {
		t.Errorf("JournalID = %+v, want 3", req.JournalID)
	}
	if req.Lat.Set {
		t.Error("garbage lat should be unset")
	}
	if !req.Lng.Set {
		t.Error("numeric lng should be set")
	}
	if req.HasCoordinates() {
		t.Error("one missing coordinate means no usable position")
	}
}

func TestNormalizeEventType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"view", EventTypeView},
		{"download", EventTypeDownload},
		{"visit", EventTypeVisit},
		{"historical_baseline", EventTypeHistoricalBaseline},
		{"", EventTypeView},
		{"pageview", EventTypeView},
		{"DOWNLOAD", EventTypeView},
	}
	for _, tt := range tests {
		if got := NormalizeEventType(tt.in); got != tt.want {
			t.Errorf("NormalizeEventType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHitFrame(t *testing.T) {
	lat, lng := -6.7924, 39.2083
	jid := int64(3)
	ev := &ReadershipEvent{
		EventID:   "abc",
		JournalID: &jid,
		Latitude:  &lat,
		Longitude: &lng,
		EventType: EventTypeDownload,
	}

	frame := HitFrame(ev)
	if frame.Type != FrameTypeReadershipHit {
		t.Errorf("Type = %q, want %q", frame.Type, FrameTypeReadershipHit)
	}
	if frame.Payload == nil || frame.Payload.Lat == nil || *frame.Payload.Lat != lat {
		t.Errorf("payload lat = %+v, want %g", frame.Payload, lat)
	}

	raw, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if decoded["type"] != "READERSHIP_HIT" {
		t.Errorf("wire type = %v", decoded["type"])
	}
}
