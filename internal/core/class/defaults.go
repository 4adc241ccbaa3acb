package class

// copyDefault returns an independent copy of a default prototype. Plain maps and
// slices are copied recursively, Cloner values clone themselves and everything
// else (scalars, assets, host handles) is returned as is.
func copyDefault(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyDefault(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyDefault(item)
		}
		return out
	case Cloner:
		return val.Clone()
	default:
		return v
	}
}
