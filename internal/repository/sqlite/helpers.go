package sqlite

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"

	"assetgraph/internal/codec"
)

// timeLayout is fixed-width so stored timestamps order lexicographically
// and the since filters can compare them as strings.
const timeLayout = "2006-01-02 15:04:05.000000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func validIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// filterValue normalizes a filter value for comparison against
// json_extract output.
func filterValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return formatTime(t)
	}
	return v
}

// marshalProps serializes a codec property map into its JSON document,
// lifting the variant discriminator and updated_at into dedicated
// columns. Timestamps are stored as fixed-width UTC strings.
func marshalProps(props map[string]any) (doc, etype, updated string, err error) {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if t, ok := v.(time.Time); ok {
			out[k] = formatTime(t)
			continue
		}
		out[k] = v
	}

	if s, ok := out[codec.KeyUpdatedAt].(string); ok {
		updated = s
	} else {
		return "", "", "", fmt.Errorf("marshal props: missing %s", codec.KeyUpdatedAt)
	}
	etype, _ = out[codec.KeyEtype].(string)

	raw, err := json.Marshal(out)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal props: %w", err)
	}
	return string(raw), etype, updated, nil
}

// unmarshalProps restores a codec property map from its JSON document,
// parsing the envelope timestamps back into time.Time.
func unmarshalProps(doc string) (map[string]any, error) {
	var props map[string]any
	if err := json.Unmarshal([]byte(doc), &props); err != nil {
		return nil, fmt.Errorf("unmarshal props: %w", err)
	}
	for _, key := range []string{codec.KeyCreatedAt, codec.KeyUpdatedAt} {
		s, ok := props[key].(string)
		if !ok {
			continue
		}
		t, err := time.ParseInLocation(timeLayout, s, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		props[key] = t
	}
	return props, nil
}
