package logger

import (
	"net/http"
	"strings"
)

var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"x-api-key":     {},
}

// MaskHeaders flattens headers for logging, hiding credentials except their last 4 characters.
func MaskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		if _, ok := sensitiveHeaders[strings.ToLower(key)]; ok {
			joined = maskCredential(joined)
		}
		out[key] = joined
	}
	return out
}

func maskCredential(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if scheme, token, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return "Bearer " + maskTail(token)
	}
	return maskTail(value)
}

func maskTail(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
