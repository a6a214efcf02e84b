package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Encode converts a JSON-taggable value into a Document.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// Decode fills v from a Document.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// normalize rewrites backend-specific values (int64, time.Time, nested typed
// maps) into the plain JSON shapes every backend returns.
func normalize(data map[string]any) (Document, error) {
	return Encode(data)
}

func cloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(cloneDocument(val))
	case Document:
		return cloneDocument(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	default:
		return val
	}
}

// mergeDocument overwrites the top-level fields of base that are present in patch.
func mergeDocument(base, patch Document) Document {
	out := cloneDocument(base)
	if out == nil {
		out = Document{}
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

// valuesEqual compares two document values, treating all numbers alike.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// queryValue converts a query value into its JSON shape, e.g. a typed string
// enum into a plain string.
func queryValue(value any) (any, error) {
	doc, err := Encode(map[string]any{"v": value})
	if err != nil {
		return nil, err
	}
	return doc["v"], nil
}

func matchesEquals(doc Document, field string, value any) bool {
	got, ok := doc[field]
	return ok && valuesEqual(got, value)
}

func sortSnapshots(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
}
