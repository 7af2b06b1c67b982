package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// Error is a non-2xx response from the remote API.
type Error struct {
	StatusCode int
	Detail     string // server supplied "detail", may be empty
	Body       []byte
	RequestID  string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Unwrap classifies the response: 5xx is transient, everything else is a
// rejection by the server.
func (e *Error) Unwrap() error {
	if e.StatusCode >= http.StatusInternalServerError {
		return apperrors.ErrTransient
	}
	return apperrors.ErrAuth
}

func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// ParseDetail extracts a displayable message from a FastAPI style error body:
// {"detail": "..."} or {"detail": [{"msg": "..."}, ...]}.
func ParseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
