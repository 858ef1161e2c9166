package logx

import (
	"net/http"
	"time"
)

// RoundTripper wraps next and logs every outgoing request with its status and latency.
// A nil next means http.DefaultTransport.
func RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next}
}

type loggingTransport struct {
	next http.RoundTripper
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	logger := Logger().With().
		Str("component", "http_client").
		Str("request_method", r.Method).
		Str("request_uri", r.URL.Redacted()).
		Logger()

	t1 := time.Now()
	res, err := t.next.RoundTrip(r)
	latency := time.Since(t1)

	if err != nil {
		logger.Warn().Err(err).Dur("latency", latency).Msg("Request failed")
		return nil, err
	}

	logEvent := logger.Debug()
	if res.StatusCode >= 500 {
		logEvent = logger.Error()
	} else if res.StatusCode >= 400 {
		logEvent = logger.Warn()
	}

	logEvent.
		Int("status", res.StatusCode).
		Dur("latency", latency).
		Msg("Request completed")

	return res, nil
}
