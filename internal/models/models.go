package models

import "time"

// Payload carries template data for email jobs. Values may come back from
// JSON as float64 or string, so getters coerce.
type Payload map[string]any

func (p Payload) GetInt64(key string) int64 {
	if p == nil {
		return 0
	}
	val, ok := p[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (p Payload) GetFloat64(key string) float64 {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (p Payload) GetString(key string) string {
	if p == nil {
		return ""
	}
	if str, ok := p[key].(string); ok {
		return str
	}
	return ""
}

func (p Payload) GetTime(key string) time.Time {
	if p == nil {
		return time.Time{}
	}
	switch v := p[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse(TimestampLayout, v); err == nil {
			return t
		}
		if t, err := time.Parse(DateLayout, v); err == nil {
			return t
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// Merge returns a copy of p overlaid with other.
func (p Payload) Merge(other Payload) Payload {
	out := make(Payload, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
