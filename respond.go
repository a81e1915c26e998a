package authz

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lambdakit/go-authz/caching"
)

// Respond writes body as JSON with status, passing the response through
// caching.Negotiate first: ETag, Cache-Control, Last-Modified and Expires
// are set from opts, and the request's conditional headers may turn it into
// a 304 Not Modified without a body.
func Respond(w http.ResponseWriter, r *http.Request, status int, body any, opts caching.Options) (int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("could not encode response body: %w", err)
	}

	resp := caching.Negotiate(
		caching.Response{StatusCode: status, Headers: w.Header(), Body: encoded},
		body,
		opts,
		caching.ConditionalHeadersFrom(r.Header),
	)

	for name, values := range resp.Headers {
		w.Header()[name] = values
	}
	if resp.StatusCode != http.StatusNotModified {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := w.Write(resp.Body); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

// Respond is the package level Respond, additionally counting the response
// in MetricResponses by status.
func (m *Middleware) Respond(w http.ResponseWriter, r *http.Request, status int, body any, opts caching.Options) error {
	written, err := Respond(w, r, status, body, opts)
	if written != 0 {
		m.metrics.IncCounter(MetricResponses, map[string]string{"status": strconv.Itoa(written)})
	}
	if err != nil && m.logger != nil {
		m.logger.Error("failed to write response", "error", err, "status", status)
	}
	return err
}
