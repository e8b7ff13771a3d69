package persist

// CleanData recursively removes null values from decoded JSON data:
// map entries whose cleaned value is nil are dropped, and nil slice
// elements are filtered out. The operation is idempotent.
func CleanData(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			cleaned := CleanData(item)
			if cleaned == nil {
				continue
			}
			out[k] = cleaned
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			cleaned := CleanData(item)
			if cleaned == nil {
				continue
			}
			out = append(out, cleaned)
		}
		return out
	default:
		return v
	}
}
