package entries

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"mediatrack/pkg/models"
)

// FieldUpdate is one allow-listed change to an entry. Each implementation
// carries an already validated value and knows how to apply it.
type FieldUpdate interface {
	Field() string
	Apply(e *models.Entry)
}

type TitleUpdate struct{ Value string }

func (u TitleUpdate) Field() string         { return "title" }
func (u TitleUpdate) Apply(e *models.Entry) { e.Title = u.Value }

type NotesUpdate struct{ Value string }

func (u NotesUpdate) Field() string         { return "notes" }
func (u NotesUpdate) Apply(e *models.Entry) { e.Notes = u.Value }

type PlatformUpdate struct{ Value string }

func (u PlatformUpdate) Field() string         { return "platform" }
func (u PlatformUpdate) Apply(e *models.Entry) { e.Platform = u.Value }

type StatusUpdate struct{ Value models.Status }

func (u StatusUpdate) Field() string         { return "status" }
func (u StatusUpdate) Apply(e *models.Entry) { e.Status = u.Value }

type ProgressCurrentUpdate struct{ Value int }

func (u ProgressCurrentUpdate) Field() string         { return "progress_current" }
func (u ProgressCurrentUpdate) Apply(e *models.Entry) { e.ProgressCurrent = u.Value }

// ProgressTotalUpdate clears the total when Value is nil.
type ProgressTotalUpdate struct{ Value *int }

func (u ProgressTotalUpdate) Field() string         { return "progress_total" }
func (u ProgressTotalUpdate) Apply(e *models.Entry) { e.ProgressTotal = u.Value }

// RatingUpdate clears the rating when Value is nil.
type RatingUpdate struct{ Value *int }

func (u RatingUpdate) Field() string         { return "rating" }
func (u RatingUpdate) Apply(e *models.Entry) { e.Rating = u.Value }

type fieldParser func(raw json.RawMessage) (FieldUpdate, bool)

// editableFields is the allow-list, in application order.
var editableFields = []struct {
	key   string
	parse fieldParser
}{
	{"title", parseTitle},
	{"notes", parseNotes},
	{"progress_current", parseProgressCurrent},
	{"progress_total", parseProgressTotal},
	{"status", parseStatus},
	{"platform", parsePlatform},
	{"rating", parseRating},
}

// ParseFieldUpdates turns a partial JSON object into typed updates. Keys
// outside the allow-list are ignored and values that fail to parse or fall
// out of range are skipped.
func ParseFieldUpdates(raw map[string]json.RawMessage) []FieldUpdate {
	out := make([]FieldUpdate, 0, len(raw))
	for _, f := range editableFields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if u, ok := f.parse(v); ok {
			out = append(out, u)
		}
	}
	return out
}

func parseTitle(raw json.RawMessage) (FieldUpdate, bool) {
	s, ok := decodeString(raw)
	if !ok {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	return TitleUpdate{Value: truncateRunes(s, models.MaxTitleLength)}, true
}

func parseNotes(raw json.RawMessage) (FieldUpdate, bool) {
	s, ok := decodeString(raw)
	if !ok {
		return nil, false
	}
	return NotesUpdate{Value: s}, true
}

func parsePlatform(raw json.RawMessage) (FieldUpdate, bool) {
	s, ok := decodeString(raw)
	if !ok {
		return nil, false
	}
	return PlatformUpdate{Value: strings.TrimSpace(s)}, true
}

func parseStatus(raw json.RawMessage) (FieldUpdate, bool) {
	s, ok := decodeString(raw)
	if !ok {
		return nil, false
	}
	st := models.Status(strings.TrimSpace(s))
	if !st.Valid() {
		return nil, false
	}
	return StatusUpdate{Value: st}, true
}

func parseProgressCurrent(raw json.RawMessage) (FieldUpdate, bool) {
	n, ok := decodeInt(raw)
	if !ok || n < 0 {
		return nil, false
	}
	return ProgressCurrentUpdate{Value: n}, true
}

func parseProgressTotal(raw json.RawMessage) (FieldUpdate, bool) {
	if isEmptyValue(raw) {
		return ProgressTotalUpdate{}, true
	}
	n, ok := decodeInt(raw)
	if !ok || n < 0 {
		return nil, false
	}
	return ProgressTotalUpdate{Value: &n}, true
}

func parseRating(raw json.RawMessage) (FieldUpdate, bool) {
	if isEmptyValue(raw) {
		return RatingUpdate{}, true
	}
	n, ok := decodeInt(raw)
	if !ok || n < models.MinRating || n > models.MaxRating {
		return nil, false
	}
	return RatingUpdate{Value: &n}, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeInt accepts a JSON integer or a string holding one.
func decodeInt(raw json.RawMessage) (int, bool) {
	var n json.Number
	if s, ok := decodeString(raw); ok {
		n = json.Number(strings.TrimSpace(s))
	} else if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, false
	}
	return v, true
}

// isEmptyValue reports a JSON null or a blank string.
func isEmptyValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	s, ok := decodeString(raw)
	return ok && strings.TrimSpace(s) == ""
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
