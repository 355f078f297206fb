package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
)

// toPayload converts the accepted Data shapes into a plain mapping. The
// returned map may alias data when data already is a map[string]any.
func toPayload(data any) (map[string]any, error) {
	switch v := data.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		if v == nil {
			return map[string]any{}, nil
		}
		return v, nil
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	case url.Values:
		out := make(map[string]any, len(v))
		for k, vals := range v {
			if len(vals) == 1 {
				out[k] = vals[0]
				continue
			}
			items := make([]any, len(vals))
			for i, s := range vals {
				items[i] = s
			}
			out[k] = items
		}
		return out, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
	}
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, fmt.Errorf("%w: %T is not an object", ErrUnsupportedPayload, data)
	}
	return out, nil
}

// CompactPayload returns a copy of in without nil or empty-string values.
// The input map is left untouched.
func CompactPayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if isBlank(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// EncodeValues flattens data into url.Values using bracket notation for
// nested values: a[b]=1, list[0]=x. Nil values are skipped.
func EncodeValues(data any) (url.Values, error) {
	if v, ok := data.(url.Values); ok {
		out := make(url.Values, len(v))
		for k, vals := range v {
			out[k] = append([]string(nil), vals...)
		}
		return out, nil
	}

	payload, err := toPayload(data)
	if err != nil {
		return nil, err
	}
	out := url.Values{}
	for _, k := range sortedKeys(payload) {
		appendValue(out, k, payload[k])
	}
	return out, nil
}

func appendValue(vals url.Values, key string, v any) {
	switch t := v.(type) {
	case nil:
		return
	case string:
		vals.Add(key, t)
		return
	case bool:
		vals.Add(key, strconv.FormatBool(t))
		return
	case float64:
		vals.Add(key, strconv.FormatFloat(t, 'f', -1, 64))
		return
	case json.Number:
		vals.Add(key, t.String())
		return
	case map[string]any:
		for _, k := range sortedKeys(t) {
			appendValue(vals, key+"["+k+"]", t[k])
		}
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return
		}
		appendValue(vals, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return
		}
		for i := 0; i < rv.Len(); i++ {
			appendValue(vals, key+"["+strconv.Itoa(i)+"]", rv.Index(i).Interface())
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			vals.Add(key, fmt.Sprint(v))
			return
		}
		keys := make([]string, 0, rv.Len())
		for _, mk := range rv.MapKeys() {
			keys = append(keys, mk.String())
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendValue(vals, key+"["+k+"]", rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
		}
	default:
		vals.Add(key, fmt.Sprint(v))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// multipartFrom turns a plain payload into multipart fields, keeping the
// first value of each key.
func multipartFrom(data any) (*Multipart, error) {
	vals, err := EncodeValues(data)
	if err != nil {
		return nil, err
	}
	mp := &Multipart{Fields: make(map[string]string, len(vals))}
	for k := range vals {
		mp.Fields[k] = vals.Get(k)
	}
	return mp, nil
}
