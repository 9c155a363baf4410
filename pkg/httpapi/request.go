package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

var ErrInvalidPage = errors.New("limit and offset must be non-negative integers")

// DecodeJSON decodes a single JSON object from body, rejecting unknown fields.
func DecodeJSON(body io.Reader, out any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// Page reads limit/offset query parameters. A missing or zero limit falls back
// to def; limits above max are clamped.
func Page(r *http.Request, def, max int) (limit, offset int, err error) {
	limit, err = queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err = queryInt(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	if limit == 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit, offset, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, ErrInvalidPage
	}
	return v, nil
}
