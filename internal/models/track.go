// Geopulse - Scholarly Readership Analytics and Geographic Visualization
// Copyright 2026 Mwangaza University Press
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mwangaza-press/geopulse

package models

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
)

// LenientFloat is a float field that tolerates sloppy client payloads.
// Numbers, numeric strings, null, and garbage all decode without error;
// anything unparseable leaves the field unset. Tracking beacons from
// embedded journal pages send whatever their templating produced, and a
// bad coordinate must never reject the whole event.
type LenientFloat struct {
	Set   bool
	Value float64
}

// UnmarshalJSON never returns an error.
func (f *LenientFloat) UnmarshalJSON(b []byte) error {
	f.Set = false
	f.Value = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f.Set = true
		f.Value = v
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	f.Set = true
	f.Value = v
	return nil
}

// MarshalJSON emits the value, or null when unset.
func (f LenientFloat) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the value as a pointer, nil when unset.
func (f LenientFloat) Ptr() *float64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// LenientInt is the integer counterpart of LenientFloat. Fractional
// numbers truncate toward zero.
type LenientInt struct {
	Set   bool
	Value int64
}

// UnmarshalJSON never returns an error.
func (i *LenientInt) UnmarshalJSON(b []byte) error {
	i.Set = false
	i.Value = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			i.Set = true
			i.Value = v
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			i.Set = true
			i.Value = int64(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	i.Set = true
	i.Value = int64(v)
	return nil
}

// MarshalJSON emits the value, or null when unset.
func (i LenientInt) MarshalJSON() ([]byte, error) {
	if !i.Set {
		return []byte("null"), nil
	}
	return json.Marshal(i.Value)
}

// Ptr returns the value as a pointer, nil when unset.
func (i LenientInt) Ptr() *int64 {
	if !i.Set {
		return nil
	}
	v := i.Value
	return &v
}

// TrackRequest is the ingestion body. Every field is optional; numeric
// fields decode leniently.
type TrackRequest struct {
	JournalID       LenientInt   `json:"journal_id"`
	ArticleID       LenientInt   `json:"article_id"`
	Lat             LenientFloat `json:"lat"`
	Lng             LenientFloat `json:"lng"`
	EventType       string       `json:"event_type"`
	CityName        string       `json:"city_name"`
	CountryName     string       `json:"country_name"`
	CountryCode     string       `json:"country_code"`
	RegionName      string       `json:"region_name"`
	SessionDuration LenientInt   `json:"session_duration"`
	ArticleTitle    string       `json:"article_title"`
}

// HasCoordinates reports whether the client sent a usable raw position.
// Raw coordinates take precedence over place names.
func (r *TrackRequest) HasCoordinates() bool {
	return r.Lat.Set && r.Lng.Set
}

// HasPlaceNames reports whether any geocodable place field is present.
func (r *TrackRequest) HasPlaceNames() bool {
	return r.CountryCode != "" || r.CountryName != "" || r.CityName != "" || r.RegionName != ""
}

// TrackResponse confirms ingestion and echoes the stored event, matching
// what was just broadcast to pulse subscribers.
type TrackResponse struct {
	Status string           `json:"status"`
	Event  *ReadershipEvent `json:"event"`
}
