package jsonlogic

import (
	"fmt"
	"reflect"
	"strings"
)

// Intersects is true when the two list arguments share at least one element,
// compared as text: {"intersects": [["84","85"], {"var": "chapters"}]}.
func Intersects(args ...any) any {
	if len(args) < 2 {
		return false
	}
	left := toStrings(args[0])
	if len(left) == 0 {
		return false
	}
	seen := make(map[string]bool, len(left))
	for _, s := range left {
		seen[s] = true
	}
	for _, s := range toStrings(args[1]) {
		if seen[s] {
			return true
		}
	}
	return false
}

// StartsWith is true when the first argument starts with any of the others:
// {"starts_with": [{"var": "declaration_key"}, "T", "V"]}.
func StartsWith(args ...any) any {
	if len(args) < 2 || args[0] == nil {
		return false
	}
	value := strings.ToUpper(fmt.Sprint(args[0]))
	for _, prefix := range args[1:] {
		if p := strings.ToUpper(fmt.Sprint(prefix)); p != "" && strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}

func toStrings(v any) []string {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []string{fmt.Sprint(v)}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, fmt.Sprint(rv.Index(i).Interface()))
	}
	return out
}
