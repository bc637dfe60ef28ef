package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"guesthouse/internal/service"
)

const (
	maxBodyBytes = 1 << 20
	msgBadInput  = "Please check your input and try again."
)

// fields is a flattened request body. The site posts both urlencoded forms
// and JSON, and some field names differ between the two (room-type, contact-name).
type fields map[string]string

func readFields(w http.ResponseWriter, r *http.Request) (fields, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		return readJSONFields(r.Body)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
	}

	out := make(fields, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}

func readJSONFields(body io.Reader) (fields, error) {
	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return fields{}, nil
		}
		return nil, fmt.Errorf("decode json body: %w", err)
	}

	out := make(fields, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			encoded, _ := json.Marshal(val)
			out[k] = string(encoded)
		}
	}
	return out, nil
}

// get returns the first non-blank value among the given keys.
func (f fields) get(keys ...string) string {
	for _, k := range keys {
		if v := f[k]; strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (f fields) has(keys ...string) bool {
	return f.get(keys...) != ""
}

func (f fields) int(key string) (int, error) {
	raw := strings.TrimSpace(f.get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError(key, fmt.Sprintf("%s must be a whole number.", key))
	}
	return n, nil
}

func (f fields) float(keys ...string) (float64, error) {
	raw := strings.TrimSpace(f.get(keys...))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fieldError(keys[0], fmt.Sprintf("%s must be a number.", keys[0]))
	}
	return v, nil
}

func fieldError(field, message string) *service.ValidationError {
	return &service.ValidationError{Message: message, Fields: map[string]string{field: message}}
}
