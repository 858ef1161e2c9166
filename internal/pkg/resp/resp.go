/*
Package resp decodes chat API responses.

Successful bodies are decoded into the caller's destination; failures are turned
into *errs.CustomError values using the `{"error": "..."}` body the API returns.
*/
package resp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"duochat/internal/pkg/errs"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// ErrorBody is the JSON shape of an API failure.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DecodeJSON reads res and decodes a 2xx body into dst (which may be nil).
// Non-2xx responses become a CustomError carrying fallbackCode, except for
// 401, 413 and 429, which map to their dedicated codes.
// The response body is always closed.
func DecodeJSON(res *http.Response, dst any, fallbackCode int) error {
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return errs.Wrap(err, errs.ErrServiceUnavailable)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusError(res.StatusCode, body, fallbackCode)
	}

	if dst == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return errs.Wrap(err, errs.ErrInvalidJSONFormat)
	}

	return nil
}

func statusError(status int, body []byte, fallbackCode int) *errs.CustomError {
	var eb ErrorBody
	_ = json.Unmarshal(body, &eb)

	detail := eb.Error
	if detail == "" {
		detail = eb.Message
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	cause := fmt.Errorf("http %d: %s", status, detail)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.Wrap(cause, errs.ErrUnauthorized)
	case http.StatusRequestEntityTooLarge:
		return errs.Wrap(cause, errs.ErrRequestEntityTooLarge)
	case http.StatusTooManyRequests:
		return errs.Wrap(cause, errs.ErrRateLimitExceeded)
	}

	customErr := errs.WrapDetail(cause, fallbackCode, detail)
	customErr.Status = status
	return customErr
}
