package search

import (
	"encoding/json"
	"fmt"
)

// entry builds one result entry in the page's positional layout.
func entry(url string, height, width int, thumbnail, source string) any {
	inner := make([]any, 23)
	inner[2] = []any{thumbnail, 100, 100}
	inner[3] = []any{url, height, width}
	inner[22] = map[string]any{sourceKey: []any{nil, nil, source}}
	return []any{[]any{map[string]any{entryKey: []any{nil, inner}}}}
}

// payload nests entries at the results path of a data callback array.
func payload(entries ...any) []any {
	if entries == nil {
		entries = []any{}
	}
	root := make([]any, 57)
	tail := []any{nil, []any{entries}}
	root[56] = []any{nil, []any{[]any{"decoy", tail}}}
	return root
}

// page renders a results document whose last data callback carries root.
func page(root any) string {
	raw, err := json.Marshal(root)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf(
		"<html><head><script>AF_initDataCallback({key: 'ds:0', hash: '1', data:[1,2], sideChannel: {}});</script>"+
			"<script nonce=\"x\">AF_initDataCallback({key: 'ds:1', hash: '2', data:%s, sideChannel: {}});</script>"+
			"</head><body></body></html>",
		raw,
	)
}
