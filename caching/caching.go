package caching

import (
	"net/http"
	"strings"
	"time"
)

// Response is a serialized HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Options controls the caching headers Negotiate adds.
type Options struct {
	// CacheControl, when set, is sent verbatim as Cache-Control.
	CacheControl string

	// LastModified extracts the modification time of the logical body. When
	// it yields a time, Last-Modified is sent, truncated to whole seconds.
	LastModified LastModifiedFunc

	// MaxAge, together with a Last-Modified time, adds
	// Expires = Last-Modified + MaxAge.
	MaxAge time.Duration
}

// ConditionalHeaders are the request headers consulted by Negotiate. Empty
// strings mean the header was absent.
type ConditionalHeaders struct {
	IfNoneMatch     string
	IfModifiedSince string
}

// ConditionalHeadersFrom reads the conditional request headers.
func ConditionalHeadersFrom(h http.Header) ConditionalHeaders {
	return ConditionalHeaders{
		IfNoneMatch:     h.Get("If-None-Match"),
		IfModifiedSince: h.Get("If-Modified-Since"),
	}
}

// ConditionalHeadersFromMap reads the conditional request headers from a
// flat header map with keys in any case.
func ConditionalHeadersFromMap(headers map[string]string) ConditionalHeaders {
	var c ConditionalHeaders
	for name, value := range headers {
		switch {
		case strings.EqualFold(name, "If-None-Match"):
			c.IfNoneMatch = value
		case strings.EqualFold(name, "If-Modified-Since"):
			c.IfModifiedSince = value
		}
	}
	return c
}

// Negotiate adds ETag, Cache-Control, Last-Modified and Expires headers to
// resp and answers 304 Not Modified when the request's conditional headers
// show the client already has this representation. body is the logical
// value resp.Body was serialized from; it is only passed to
// opts.LastModified.
//
// If-None-Match is compared by exact string equality with the single
// computed tag and takes precedence over If-Modified-Since. An unparsable
// If-Modified-Since never yields 304.
//
// Negotiate is pure: resp is not modified.
func Negotiate(resp Response, body any, opts Options, conditional ConditionalHeaders) Response {
	etag := WeakETag(resp.Body)

	headers := resp.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("ETag", etag)

	if opts.CacheControl != "" {
		headers.Set("Cache-Control", opts.CacheControl)
	}

	lastModified, hasLastModified := lastModifiedOf(body, opts.LastModified)
	if hasLastModified {
		headers.Set("Last-Modified", lastModified.Format(http.TimeFormat))

		if opts.MaxAge > 0 {
			headers.Set("Expires", lastModified.Add(opts.MaxAge).Format(http.TimeFormat))
		}
	}

	if conditional.IfNoneMatch != "" && conditional.IfNoneMatch == etag {
		return notModified(headers)
	}

	if conditional.IfModifiedSince != "" && hasLastModified {
		if since, err := http.ParseTime(conditional.IfModifiedSince); err == nil && !lastModified.After(since) {
			return notModified(headers)
		}
	}

	return Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       resp.Body,
	}
}

// lastModifiedOf returns the body's modification time truncated to whole
// seconds in UTC. Times that truncate to the UNIX epoch count as absent.
func lastModifiedOf(body any, fn LastModifiedFunc) (time.Time, bool) {
	if fn == nil {
		return time.Time{}, false
	}

	t, ok := fn(body)
	if !ok || t.IsZero() {
		return time.Time{}, false
	}

	t = time.UnixMilli(t.UnixMilli() - mod(t.UnixMilli(), 1000)).UTC()
	if t.UnixMilli() == 0 {
		return time.Time{}, false
	}
	return t, true
}

// mod is the non-negative remainder, so negative timestamps round down too.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func notModified(headers http.Header) Response {
	return Response{
		StatusCode: http.StatusNotModified,
		Headers:    headers,
		Body:       []byte{},
	}
}
