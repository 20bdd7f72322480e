package sidecar

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// requiredFields distinguish a per-item sidecar from album or export level
// metadata documents, which lack at least one of them.
var requiredFields = []string{"title", "description", "imageViews"}

// Document is a parsed JSON metadata file from the export.
type Document struct {
	Title       string
	Description string
	ImageViews  string

	// PerItem is true only when all required fields are present.
	PerItem bool

	// TakenAt is photoTakenTime.timestamp in epoch seconds, nil when absent
	// or not a number.
	TakenAt *int64
	// Latitude and Longitude come from geoData, nil when absent or not a
	// number.
	Latitude  *float64
	Longitude *float64
}

type wireDocument struct {
	Title          string          `json:"title"`
	Description    json.RawMessage `json:"description"`
	ImageViews     json.RawMessage `json:"imageViews"`
	PhotoTakenTime json.RawMessage `json:"photoTakenTime"`
	GeoData        json.RawMessage `json:"geoData"`
}

type wireTakenTime struct {
	Timestamp epochSeconds `json:"timestamp"`
}

type wireGeo struct {
	Latitude  coordinate `json:"latitude"`
	Longitude coordinate `json:"longitude"`
}

// lenientNumber parses a JSON number or a numeric string. Anything else
// yields ok=false rather than an error so that one bad field does not
// discard the rest of the document.
func lenientNumber(b []byte) (float64, bool) {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return 0, false
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// epochSeconds accepts both "1552477146" and 1552477146. Other values
// leave it unset.
type epochSeconds struct {
	value *int64
}

func (e *epochSeconds) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(b)), `"`))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		e.value = &n
		return nil
	}
	if f, ok := lenientNumber(b); ok {
		n := int64(f)
		e.value = &n
	}
	return nil
}

// coordinate accepts 48.85 and "48.85". Other values leave it unset.
type coordinate struct {
	value *float64
}

func (c *coordinate) UnmarshalJSON(b []byte) error {
	if f, ok := lenientNumber(b); ok {
		c.value = &f
	}
	return nil
}

// text renders a scalar field as a string; null becomes empty.
func text(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str
	}
	return s
}

// ParseDocument decodes a sidecar document. A document that is valid JSON
// but not a per-item sidecar is returned with PerItem=false.
func ParseDocument(b []byte) (Document, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return Document{}, errors.Wrap(err, "decode sidecar")
	}

	var doc Document
	doc.PerItem = true
	for _, f := range requiredFields {
		if _, ok := keys[f]; !ok {
			doc.PerItem = false
		}
	}

	var w wireDocument
	if err := json.Unmarshal(b, &w); err != nil {
		return Document{}, errors.Wrap(err, "decode sidecar fields")
	}
	doc.Title = w.Title
	doc.Description = text(w.Description)
	doc.ImageViews = text(w.ImageViews)
	// optional blocks of the wrong shape are left unset
	var taken wireTakenTime
	if len(w.PhotoTakenTime) > 0 && json.Unmarshal(w.PhotoTakenTime, &taken) == nil {
		doc.TakenAt = taken.Timestamp.value
	}
	var geo wireGeo
	if len(w.GeoData) > 0 && json.Unmarshal(w.GeoData, &geo) == nil {
		doc.Latitude = geo.Latitude.value
		doc.Longitude = geo.Longitude.value
	}
	return doc, nil
}
