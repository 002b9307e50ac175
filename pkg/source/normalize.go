package source

import (
	"time"

	"cloud.google.com/go/firestore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalizeMap converts store-specific values into the plain shapes the
// extractor reads: map[string]any, []any, string, bool, int64 and float64
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return normalizeMap(val)
	case primitive.M:
		return normalizeMap(val)
	case primitive.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case []any:
		return normalizeSlice(val)
	case primitive.A:
		return normalizeSlice(val)
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case primitive.Decimal128:
		return val.String()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC().Format(time.RFC3339Nano)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *firestore.DocumentRef:
		if val == nil {
			return nil
		}
		return val.Path
	default:
		return v
	}
}

func normalizeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = normalizeValue(v)
	}
	return out
}
