package erp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// AuthenticationError is returned when the login endpoint rejects the credentials.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("login failed: %s", e.Message)
}

// UploadError is returned when the upload endpoint rejects a batch.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %s", e.Message)
}

// errorMessage picks the most useful text from a failed response: the JSON
// "message" field, then the raw body, then the status phrase. An empty
// "message" counts as absent so the error never has a blank message.
func errorMessage(resp *resty.Response) string {
	body := resp.Body()

	var structured map[string]any
	if err := json.Unmarshal(body, &structured); err == nil {
		if msg, ok := structured["message"].(string); ok && msg != "" {
			return msg
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}

	if phrase := http.StatusText(resp.StatusCode()); phrase != "" {
		return phrase
	}
	return resp.Status()
}
