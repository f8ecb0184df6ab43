package search

import "encoding/json"

// selector is one fallible navigation step into a decoded JSON tree. Nodes
// are nil, bool, json.Number, string, []any or map[string]any.
type selector func(node any) (any, bool)

// at indexes into an array node.
func at(i int) selector {
	return func(node any) (any, bool) {
		arr, ok := node.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return nil, false
		}
		return arr[i], true
	}
}

// key looks up a member of an object node.
func key(k string) selector {
	return func(node any) (any, bool) {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := obj[k]
		return v, ok
	}
}

// last selects the final element of a non-empty array node.
func last() selector {
	return func(node any) (any, bool) {
		arr, ok := node.([]any)
		if !ok || len(arr) == 0 {
			return nil, false
		}
		return arr[len(arr)-1], true
	}
}

// walk applies path to node, stopping at the first mismatch.
func walk(node any, path ...selector) (any, bool) {
	cur := node
	for _, sel := range path {
		next, ok := sel(cur)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func asArray(node any, ok bool) ([]any, bool) {
	if !ok {
		return nil, false
	}
	arr, isArr := node.([]any)
	return arr, isArr
}

func asString(node any, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	s, isStr := node.(string)
	return s, isStr
}

func asInt(node any, ok bool) (int64, bool) {
	if !ok {
		return 0, false
	}
	n, isNum := node.(json.Number)
	if !isNum {
		return 0, false
	}
	v, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}
