/*
Package req builds outgoing HTTP requests for the chat API.

It encodes JSON bodies and multipart file uploads, enforcing the upload size
limit before any bytes leave the process.
*/
package req

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"duochat/internal/pkg/errs"
)

// MaxRequestFileSize is the largest multipart body the client will build (20 MB).
const MaxRequestFileSize int64 = 20 << 20

// JSON creates a request with body encoded as JSON. A nil body sends no payload.
func JSON(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	r, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	r.Header.Set("Accept", "application/json")
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	return r, nil
}

// Multipart creates a POST request carrying content as a single form file under field.
// Content larger than MaxRequestFileSize is rejected with ErrRequestEntityTooLarge.
func Multipart(ctx context.Context, url, field, fileName, mimeType string, content io.Reader) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, fileName))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}

	n, err := io.Copy(part, io.LimitReader(content, MaxRequestFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload content: %w", err)
	}
	if n > MaxRequestFileSize {
		return nil, errs.NewError(errs.ErrRequestEntityTooLarge)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	r.Header.Set("Accept", "application/json")
	r.Header.Set("Content-Type", writer.FormDataContentType())

	return r, nil
}
