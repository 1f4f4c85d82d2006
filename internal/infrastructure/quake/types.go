package quake

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number accepts a JSON number or a numeric string. Anything else,
// including null, empty and placeholder strings like "-", decodes to zero
// so one malformed event cannot spoil the rest of the feed. Raw keeps the
// source text of a valid value, e.g. "5.0".
type Number struct {
	Value float64
	Raw   string
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		text = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = Number{Value: f, Raw: text}
	return nil
}

// PhivolcsEvent is one entry of the PHIVOLCS feed.
type PhivolcsEvent struct {
	Magnitude Number `json:"magnitude"`
	Location  string `json:"location"`
	DateTime  string `json:"date_time"`
	Datetime  string `json:"datetime"`
	Depth     Number `json:"depth"`
	Latitude  Number `json:"latitude"`
	Longitude Number `json:"longitude"`
}

// PhivolcsPayload is either {"latest_earthquake": {...}} or a bare array.
type PhivolcsPayload struct {
	Latest *PhivolcsEvent
	Events []PhivolcsEvent
}

func (p *PhivolcsPayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		return json.Unmarshal(data, &p.Events)
	}
	var obj struct {
		Latest *PhivolcsEvent  `json:"latest_earthquake"`
		Events []PhivolcsEvent `json:"earthquakes"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Latest = obj.Latest
	p.Events = obj.Events
	return nil
}

// Selected returns the latest event if present, else the first listed one.
func (p PhivolcsPayload) Selected() *PhivolcsEvent {
	if p.Latest != nil {
		return p.Latest
	}
	if len(p.Events) > 0 {
		return &p.Events[0]
	}
	return nil
}

// FeatureCollection is a USGS GeoJSON summary feed.
type FeatureCollection struct {
	Features []Feature `json:"features"`
}

type Feature struct {
	ID         string            `json:"id"`
	Properties FeatureProperties `json:"properties"`
}

type FeatureProperties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time"` // epoch milliseconds
}

var phivolcsLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02 January 2006 - 03:04 PM",
	"02 Jan 2006 - 03:04 PM",
	"January 2, 2006 3:04 PM",
	time.RFC3339,
}

func parsePhivolcsTime(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range phivolcsLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
