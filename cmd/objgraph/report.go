package main

import (
	"github.com/zeusync/objgraph/internal/core/class"
)

type classInfo struct {
	Name       string   `json:"name"`
	ID         string   `json:"id"`
	Extends    string   `json:"extends,omitempty"`
	Asset      bool     `json:"asset,omitempty"`
	Host       bool     `json:"host,omitempty"`
	Properties []string `json:"properties,omitempty"`
}

func classReport(reg *class.Registry) []classInfo {
	var out []classInfo
	for _, name := range reg.Names() {
		d, ok := reg.Resolve(name)
		if !ok {
			continue
		}
		info := classInfo{
			Name:       d.Name(),
			ID:         d.ID(),
			Asset:      d.IsAsset(),
			Host:       !d.Reflective(),
			Properties: d.Props(),
		}
		if s := d.Super(); s != nil {
			info.Extends = s.Name()
		}
		out = append(out, info)
	}
	return out
}

type report struct {
	Root       string         `json:"root"`
	Objects    int            `json:"objects"`
	Assets     int            `json:"assets"`
	Classes    map[string]int `json:"classes,omitempty"`
	Unresolved []string       `json:"unresolved,omitempty"`
	RawProp    string         `json:"rawProp,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
	Clone      *report        `json:"clone,omitempty"`
}

// graphReport counts the objects reachable from root. Each object is visited once.
func graphReport(root any) report {
	rep := report{Root: describe(root), Classes: map[string]int{}}
	seen := map[*class.Object]bool{}
	var walk func(v any, depth int)
	walk = func(v any, depth int) {
		if depth > maxDepth {
			return
		}
		switch val := v.(type) {
		case *class.Object:
			if val == nil || seen[val] {
				return
			}
			seen[val] = true
			if val.IsAsset() {
				rep.Assets++
				return
			}
			rep.Objects++
			rep.Classes[val.Class().Name()]++
			for _, k := range val.Keys() {
				walk(val.Value(k), depth+1)
			}
		case map[string]any:
			for _, item := range val {
				walk(item, depth+1)
			}
		case []any:
			for _, item := range val {
				walk(item, depth+1)
			}
		}
	}
	walk(root, 0)
	return rep
}

// containers without an object in between can nest cyclically
const maxDepth = 256

func describe(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case *class.Object:
		if val.Name() != "" {
			return val.Class().Name() + " " + val.Name()
		}
		return val.Class().Name()
	case map[string]any:
		return "map"
	case []any:
		return "array"
	default:
		return "value"
	}
}
