package persist

import (
	"encoding/json"
	"log/slog"

	"github.com/edulab/reporover/internal/apperr"
)

// mergeSettings overlays a stored JSON object onto the defaults. The two
// trees are walked in parallel: fields absent from the store keep their
// default, fields the defaults do not know are dropped with a warning, and
// fields whose JSON type disagrees with the default's fall back to the
// default with a warning. The merged tree is decoded back into a Profile.
func mergeSettings(defaults Profile, stored map[string]any, log *slog.Logger) (Profile, error) {
	defaultData, err := json.Marshal(defaults)
	if err != nil {
		return Profile{}, apperr.NewFile("encoding default settings", err)
	}
	var defaultTree map[string]any
	if err := json.Unmarshal(defaultData, &defaultTree); err != nil {
		return Profile{}, apperr.NewFile("decoding default settings", err)
	}

	merged := mergeTree("", defaultTree, stored, log)

	mergedData, err := json.Marshal(merged)
	if err != nil {
		return Profile{}, apperr.NewFile("encoding merged settings", err)
	}
	out := defaults
	if err := json.Unmarshal(mergedData, &out); err != nil {
		return Profile{}, apperr.NewFile("decoding merged settings", err)
	}
	return out, nil
}

func mergeTree(prefix string, defaults, stored map[string]any, log *slog.Logger) map[string]any {
	out := make(map[string]any, len(defaults))
	for key, def := range defaults {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		val, ok := stored[key]
		if !ok {
			out[key] = def
			continue
		}

		defMap, defIsMap := def.(map[string]any)
		valMap, valIsMap := val.(map[string]any)
		switch {
		case defIsMap && valIsMap:
			out[key] = mergeTree(path, defMap, valMap, log)
		case sameJSONType(def, val):
			out[key] = val
		default:
			log.Warn("settings field has wrong type, using default",
				"field", path, "stored", val)
			out[key] = def
		}
	}
	for key := range stored {
		if _, ok := defaults[key]; !ok {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			log.Warn("unknown settings field ignored", "field", path)
		}
	}
	return out
}

// sameJSONType compares the decoded JSON kinds of two values. Null in the
// store is treated as "use the default".
func sameJSONType(def, val any) bool {
	if val == nil {
		return false
	}
	switch def.(type) {
	case string:
		_, ok := val.(string)
		return ok
	case float64:
		_, ok := val.(float64)
		return ok
	case bool:
		_, ok := val.(bool)
		return ok
	case []any:
		_, ok := val.([]any)
		return ok
	case map[string]any:
		_, ok := val.(map[string]any)
		return ok
	default:
		return false
	}
}
