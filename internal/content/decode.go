package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeString(doc RawDocument, key string) string {
	raw, ok := doc[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// decodeSlug accepts {"current": "..."} or a bare string.
func decodeSlug(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var wrapped struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return strings.TrimSpace(wrapped.Current)
	}
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		return strings.TrimSpace(bare)
	}
	return ""
}

// decodeColor accepts the Sanity color object ({"hex": ...}) or a string.
func decodeColor(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var color struct {
		Hex string `json:"hex"`
	}
	if err := json.Unmarshal(raw, &color); err == nil {
		return color.Hex
	}
	return ""
}

// fieldReader decodes fields of one document and remembers the first
// structural problem so projection can fail as a whole.
type fieldReader struct {
	doc     RawDocument
	variant Variant
	id      string
	err     error
}

func (r *fieldReader) fail(field, reason string) {
	if r.err != nil {
		return
	}
	r.err = &MalformedError{Variant: r.variant, ID: r.id, Field: field, Reason: reason}
}

// decodeField unmarshals doc[key] into out. Absent and null fields report
// false with no error.
func decodeField(doc RawDocument, key string, out any) (bool, error) {
	raw, ok := doc[key]
	if !ok || isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *fieldReader) decode(key string, out any) bool {
	ok, err := decodeField(r.doc, key, out)
	if err != nil {
		r.fail(key, "has an unexpected shape")
	}
	return ok
}

func (r *fieldReader) str(key string) string {
	var s string
	r.decode(key, &s)
	return s
}

func (r *fieldReader) strs(key string) []string {
	var values []string
	r.decode(key, &values)
	out := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}

func (r *fieldReader) boolean(key string) bool {
	var b bool
	r.decode(key, &b)
	return b
}

func (r *fieldReader) date(key string) time.Time {
	value := r.str(key)
	t, err := parseDate(value)
	if err != nil {
		r.fail(key, err.Error())
		return time.Time{}
	}
	return t
}
