package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Category filters select which barcode categories a preview or marker
// query shows. A missing filter shows every category; a present but empty
// one shows none. Accepted forms, in query strings and request bodies:
//
//	categories=AAGT&categories=CCGA
//	categories=["AAGT","CCGA"]
//	categories=AAGT,CCGA
//
// Bodies may also be a bare JSON array or {"categories": [...]}.

const maxCategoryFilterBodyBytes = 10 << 20

var errFilterTooLarge = errors.New("category filter body too large")

// parseCategoryFilter reads the filter from query values. The bool is false
// when no filter was given.
func parseCategoryFilter(query url.Values) ([]string, bool) {
	values, ok := query["categories"]
	if !ok {
		return nil, false
	}
	if len(values) > 1 {
		return trimNonEmpty(values), true
	}
	return splitCategories(values[0]), true
}

// splitCategories parses one filter value: a JSON array when it looks like
// one, otherwise a comma separated list. The result is never nil.
func splitCategories(raw string) []string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var keys []string
		if err := json.Unmarshal([]byte(raw), &keys); err == nil {
			if keys == nil {
				keys = []string{}
			}
			return keys
		}
	}
	if raw == "" {
		return []string{}
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseCategoryFilterBody reads the filter from a POST body. Large category
// lists do not fit in a URL, so previews accept them here.
func parseCategoryFilterBody(r *http.Request) ([]string, bool, error) {
	if r.Body == nil {
		return nil, false, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCategoryFilterBodyBytes+1))
	if err != nil {
		return nil, false, err
	}
	if len(body) > maxCategoryFilterBodyBytes {
		return nil, false, errFilterTooLarge
	}
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 {
		return nil, false, nil
	}

	switch raw[0] {
	case '{':
		if keys, ok, handled := categoriesFromObject(raw); handled {
			return keys, ok, nil
		}
	case '[':
		return splitCategories(string(raw)), true, nil
	}

	if bytes.ContainsRune(raw, '=') {
		if q, err := url.ParseQuery(string(raw)); err == nil {
			keys, ok := parseCategoryFilter(q)
			return keys, ok, nil
		}
	}
	return splitCategories(string(raw)), true, nil
}

// categoriesFromObject handles {"categories": ...}. handled is false when
// raw is not a JSON object, so the caller falls back to plain parsing.
func categoriesFromObject(raw []byte) (keys []string, ok, handled bool) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, false
	}
	field := bytes.TrimSpace(payload["categories"])
	if len(field) == 0 || bytes.Equal(field, []byte("null")) {
		return nil, false, true
	}
	var list []string
	if err := json.Unmarshal(field, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list, true, true
	}
	var s string
	if err := json.Unmarshal(field, &s); err == nil {
		return splitCategories(s), true, true
	}
	return nil, false, false
}
