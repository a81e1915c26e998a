package caching

import (
	"encoding/json"
	"time"
)

// LastModifiedFunc extracts the last modification time of a response body.
// ok is false when the body carries none.
type LastModifiedFunc func(body any) (lastModified time.Time, ok bool)

// LastModifiedFromProperty reads a UNIX millisecond timestamp from the
// property key of an object body. For an array body it returns the largest
// such timestamp among its elements. Non-numeric values are ignored.
//
// Bodies that are not already generic JSON values (map[string]any, []any)
// are converted through encoding/json first, so structs work with their
// JSON field names.
func LastModifiedFromProperty(key string) LastModifiedFunc {
	return func(body any) (time.Time, bool) {
		switch v := normalize(body).(type) {
		case map[string]any:
			ms, ok := number(v[key])
			if !ok {
				return time.Time{}, false
			}
			return time.UnixMilli(ms), true

		case []any:
			var (
				latest int64
				found  bool
			)
			for _, element := range v {
				object, ok := element.(map[string]any)
				if !ok {
					continue
				}
				ms, ok := number(object[key])
				if !ok {
					continue
				}
				if !found || ms > latest {
					latest, found = ms, true
				}
			}
			if !found {
				return time.Time{}, false
			}
			return time.UnixMilli(latest), true

		default:
			return time.Time{}, false
		}
	}
}

func normalize(body any) any {
	switch body.(type) {
	case nil, map[string]any, []any, string, float64, bool, json.Number:
		return body
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil
	}

	var generic any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return nil
	}
	return generic
}

func number(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
