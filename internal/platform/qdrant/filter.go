package qdrant

import (
	"fmt"
	"sort"
	"strings"
)

// clause mirrors Qdrant's boolean filter object.
type clause struct {
	Must    []any
	Should  []any
	MustNot []any
}

func (c clause) asMap() map[string]any {
	out := map[string]any{}
	if len(c.Must) > 0 {
		out["must"] = c.Must
	}
	if len(c.Should) > 0 {
		out["should"] = c.Should
	}
	if len(c.MustNot) > 0 {
		out["must_not"] = c.MustNot
	}
	return out
}

func (c *clause) merge(o clause) {
	c.Must = append(c.Must, o.Must...)
	c.Should = append(c.Should, o.Should...)
	c.MustNot = append(c.MustNot, o.MustNot...)
}

func filterErr(code OperationErrorCode, format string, args ...any) error {
	return opErr("filter_translate", code, fmt.Sprintf(format, args...), nil)
}

// translateFilter converts the $eq/$ne/$in/$and/$or/$not dialect to Qdrant conditions.
// Keys are visited in sorted order so the output is deterministic.
func translateFilter(filter map[string]any) (clause, error) {
	var out clause
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		value := filter[key]
		switch strings.ToLower(k) {
		case "$and", "$or":
			items, ok := objectSlice(value)
			if !ok {
				return clause{}, filterErr(OperationErrorValidation, "operator %s expects array of objects", k)
			}
			for _, item := range items {
				sub, err := translateFilter(item)
				if err != nil {
					return clause{}, err
				}
				if k == "$and" {
					out.Must = append(out.Must, sub.asMap())
				} else {
					out.Should = append(out.Should, sub.asMap())
				}
			}
		case "$not":
			item, ok := value.(map[string]any)
			if !ok {
				return clause{}, filterErr(OperationErrorValidation, "operator $not expects an object")
			}
			sub, err := translateFilter(item)
			if err != nil {
				return clause{}, err
			}
			out.MustNot = append(out.MustNot, sub.asMap())
		default:
			if strings.HasPrefix(k, "$") {
				return clause{}, filterErr(OperationErrorUnsupportedFilter, "unsupported top-level filter operator %q", k)
			}
			part, err := translateField(k, value)
			if err != nil {
				return clause{}, err
			}
			out.merge(part)
		}
	}
	return out, nil
}

func translateField(field string, value any) (clause, error) {
	var out clause
	ops, isOps := value.(map[string]any)
	if !isOps {
		if !isScalar(value) {
			return clause{}, filterErr(OperationErrorValidation, "field %q expects scalar value or operator object", field)
		}
		out.Must = append(out.Must, matchValue(field, value))
		return out, nil
	}
	if len(ops) == 0 {
		return clause{}, filterErr(OperationErrorValidation, "field %q has empty operator map", field)
	}
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	for _, op := range names {
		arg := ops[op]
		switch strings.ToLower(op) {
		case "$eq", "$ne":
			if !isScalar(arg) {
				return clause{}, filterErr(OperationErrorValidation, "operator %s for field %q expects scalar value", op, field)
			}
			if op == "$eq" {
				out.Must = append(out.Must, matchValue(field, arg))
			} else {
				out.MustNot = append(out.MustNot, matchValue(field, arg))
			}
		case "$in":
			values, ok := scalarSlice(arg)
			if !ok {
				return clause{}, filterErr(OperationErrorValidation, "operator $in for field %q expects scalar array", field)
			}
			if len(values) == 0 {
				return clause{}, filterErr(OperationErrorValidation, "operator $in for field %q cannot be empty", field)
			}
			out.Must = append(out.Must, map[string]any{"key": field, "match": map[string]any{"any": values}})
		default:
			return clause{}, filterErr(OperationErrorUnsupportedFilter, "unsupported filter operator %q for field %q", op, field)
		}
	}
	return out, nil
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}

func objectSlice(value any) ([]map[string]any, bool) {
	raw, ok := value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, obj)
	}
	return out, true
}

func scalarSlice(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []string:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			out = append(out, v)
		}
		return out, true
	case []any:
		for _, v := range typed {
			if !isScalar(v) {
				return nil, false
			}
		}
		return typed, true
	default:
		return nil, false
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}
