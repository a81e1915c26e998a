package caching

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	updatedAtETag = `W/"1b-Kvl7j3Cm9OBjq13jSIprFOJ30JA"`
	emptyETag     = `W/"2-vyGp6PvFo4RvsFtPoIWeCReyIC8"`
)

type updated struct {
	UpdatedAt int64 `json:"updatedAt"`
}

func jsonResponse(t *testing.T, body any) Response {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	return Response{StatusCode: http.StatusOK, Body: encoded}
}

func TestNegotiate(t *testing.T) {
	withUpdatedAt := updated{UpdatedAt: 1638867335122}
	lastModifiedOptions := Options{
		LastModified: LastModifiedFromProperty("updatedAt"),
		MaxAge:       time.Hour,
	}
	lastModifiedHeaders := http.Header{
		"Etag":          {updatedAtETag},
		"Expires":       {"Tue, 07 Dec 2021 09:55:35 GMT"},
		"Last-Modified": {"Tue, 07 Dec 2021 08:55:35 GMT"},
	}

	testCases := []struct {
		name            string
		body            any
		options         Options
		conditional     ConditionalHeaders
		expectedStatus  int
		expectedBody    string
		expectedHeaders http.Header
	}{
		{
			name:            "it adds last-modified and expires when a timestamp is found",
			body:            withUpdatedAt,
			options:         lastModifiedOptions,
			expectedStatus:  http.StatusOK,
			expectedBody:    `{"updatedAt":1638867335122}`,
			expectedHeaders: lastModifiedHeaders,
		},
		{
			name:            "it only adds an etag when no timestamp is found",
			body:            map[string]any{},
			options:         Options{MaxAge: time.Hour},
			expectedStatus:  http.StatusOK,
			expectedBody:    `{}`,
			expectedHeaders: http.Header{"Etag": {emptyETag}},
		},
		{
			name:            "it returns 304 when if-modified-since is after the last modification",
			body:            withUpdatedAt,
			options:         lastModifiedOptions,
			conditional:     ConditionalHeaders{IfModifiedSince: "Tue, 07 Dec 2021 08:55:36 GMT"},
			expectedStatus:  http.StatusNotModified,
			expectedBody:    "",
			expectedHeaders: lastModifiedHeaders,
		},
		{
			name:            "it returns 304 when if-modified-since equals the last modification",
			body:            withUpdatedAt,
			options:         lastModifiedOptions,
			conditional:     ConditionalHeaders{IfModifiedSince: "Tue, 07 Dec 2021 08:55:35 GMT"},
			expectedStatus:  http.StatusNotModified,
			expectedBody:    "",
			expectedHeaders: lastModifiedHeaders,
		},
		{
			name:            "it returns the response when if-modified-since is before the last modification",
			body:            withUpdatedAt,
			options:         lastModifiedOptions,
			conditional:     ConditionalHeaders{IfModifiedSince: "Tue, 07 Dec 2021 08:55:34 GMT"},
			expectedStatus:  http.StatusOK,
			expectedBody:    `{"updatedAt":1638867335122}`,
			expectedHeaders: lastModifiedHeaders,
		},
		{
			name:            "it returns the response when if-modified-since is not a date",
			body:            withUpdatedAt,
			options:         lastModifiedOptions,
			conditional:     ConditionalHeaders{IfModifiedSince: "yesterday"},
			expectedStatus:  http.StatusOK,
			expectedBody:    `{"updatedAt":1638867335122}`,
			expectedHeaders: lastModifiedHeaders,
		},
		{
			name:            "it ignores if-modified-since without a last modification",
			body:            map[string]any{},
			conditional:     ConditionalHeaders{IfModifiedSince: "Tue, 07 Dec 2021 08:55:36 GMT"},
			expectedStatus:  http.StatusOK,
			expectedBody:    `{}`,
			expectedHeaders: http.Header{"Etag": {emptyETag}},
		},
		{
			name:            "it returns 304 when if-none-match equals the etag",
			body:            map[string]any{},
			conditional:     ConditionalHeaders{IfNoneMatch: emptyETag},
			expectedStatus:  http.StatusNotModified,
			expectedBody:    "",
			expectedHeaders: http.Header{"Etag": {emptyETag}},
		},
		{
			name:            "it returns the response when if-none-match does not match",
			body:            map[string]any{},
			conditional:     ConditionalHeaders{IfNoneMatch: `W/"this-does-not-match"`},
			expectedStatus:  http.StatusOK,
			expectedBody:    `{}`,
			expectedHeaders: http.Header{"Etag": {emptyETag}},
		},
		{
			name:    "a stale if-none-match falls through to if-modified-since",
			body:    withUpdatedAt,
			options: lastModifiedOptions,
			conditional: ConditionalHeaders{
				IfNoneMatch:     `W/"stale"`,
				IfModifiedSince: "Tue, 07 Dec 2021 08:55:36 GMT",
			},
			expectedStatus:  http.StatusNotModified,
			expectedBody:    "",
			expectedHeaders: lastModifiedHeaders,
		},
		{
			name:            "it does not match etag lists",
			body:            map[string]any{},
			conditional:     ConditionalHeaders{IfNoneMatch: emptyETag + `, W/"other"`},
			expectedStatus:  http.StatusOK,
			expectedBody:    `{}`,
			expectedHeaders: http.Header{"Etag": {emptyETag}},
		},
		{
			name:            "it applies a custom cache-control header",
			body:            map[string]any{},
			options:         Options{CacheControl: "private"},
			expectedStatus:  http.StatusOK,
			expectedBody:    `{}`,
			expectedHeaders: http.Header{"Etag": {emptyETag}, "Cache-Control": {"private"}},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := Negotiate(jsonResponse(t, testCase.body), testCase.body, testCase.options, testCase.conditional)

			assert.Equal(t, testCase.expectedStatus, result.StatusCode)
			assert.Equal(t, testCase.expectedBody, string(result.Body))
			if diff := cmp.Diff(testCase.expectedHeaders, result.Headers); diff != "" {
				t.Errorf("headers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNegotiate_KeepsExistingHeadersAndInput(t *testing.T) {
	resp := Response{
		StatusCode: http.StatusCreated,
		Headers:    http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{}`),
	}

	result := Negotiate(resp, map[string]any{}, Options{}, ConditionalHeaders{})

	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, "application/json", result.Headers.Get("Content-Type"))
	assert.Equal(t, emptyETag, result.Headers.Get("ETag"))
	assert.Empty(t, resp.Headers.Get("ETag"), "input headers must not be modified")
}

func TestNegotiate_Deterministic(t *testing.T) {
	body := map[string]any{"b": 2, "a": []int{1, 2, 3}}
	resp := jsonResponse(t, body)
	opts := Options{LastModified: LastModifiedFromProperty("missing"), CacheControl: "no-cache"}

	first := Negotiate(resp, body, opts, ConditionalHeaders{})
	for i := 0; i < 10; i++ {
		again := Negotiate(resp, body, opts, ConditionalHeaders{})
		assert.Equal(t, first.Headers.Get("ETag"), again.Headers.Get("ETag"))
	}
}

func TestNegotiate_TruncatesToSeconds(t *testing.T) {
	opts := Options{LastModified: func(any) (time.Time, bool) {
		return time.UnixMilli(1638867335999), true
	}}

	result := Negotiate(Response{StatusCode: http.StatusOK}, nil, opts, ConditionalHeaders{
		IfModifiedSince: "Tue, 07 Dec 2021 08:55:35 GMT",
	})

	assert.Equal(t, http.StatusNotModified, result.StatusCode)
	assert.Equal(t, "Tue, 07 Dec 2021 08:55:35 GMT", result.Headers.Get("Last-Modified"))
}

func TestNegotiate_SubSecondEpochIsAbsent(t *testing.T) {
	opts := Options{
		LastModified: func(any) (time.Time, bool) { return time.UnixMilli(500), true },
		MaxAge:       time.Hour,
	}

	result := Negotiate(Response{StatusCode: http.StatusOK}, nil, opts, ConditionalHeaders{})

	assert.Empty(t, result.Headers.Get("Last-Modified"))
	assert.Empty(t, result.Headers.Get("Expires"))
}

func TestWeakETag(t *testing.T) {
	assert.Equal(t, emptyETag, WeakETag([]byte(`{}`)))
	assert.Equal(t, updatedAtETag, WeakETag([]byte(`{"updatedAt":1638867335122}`)))
	assert.Equal(t, `W/"0-2jmj7l5rSw0yVb/vlWAYkK/YBwk"`, WeakETag(nil))
	assert.NotEqual(t, WeakETag([]byte("a")), WeakETag([]byte("b")))
}

func TestConditionalHeaders(t *testing.T) {
	t.Run("from http.Header", func(t *testing.T) {
		h := http.Header{}
		h.Set("if-none-match", `W/"x"`)
		h.Set("IF-MODIFIED-SINCE", "Tue, 07 Dec 2021 08:55:35 GMT")

		assert.Equal(t, ConditionalHeaders{
			IfNoneMatch:     `W/"x"`,
			IfModifiedSince: "Tue, 07 Dec 2021 08:55:35 GMT",
		}, ConditionalHeadersFrom(h))
	})

	t.Run("from a flat map", func(t *testing.T) {
		assert.Equal(t, ConditionalHeaders{
			IfNoneMatch:     `W/"x"`,
			IfModifiedSince: "Tue, 07 Dec 2021 08:55:35 GMT",
		}, ConditionalHeadersFromMap(map[string]string{
			"if-none-match":     `W/"x"`,
			"If-Modified-Since": "Tue, 07 Dec 2021 08:55:35 GMT",
			"accept":            "application/json",
		}))
	})
}

func TestLastModifiedFromProperty(t *testing.T) {
	extract := LastModifiedFromProperty("updatedAt")

	t.Run("object body", func(t *testing.T) {
		got, ok := extract(map[string]any{"updatedAt": float64(1)})
		assert.True(t, ok)
		assert.Equal(t, int64(1), got.UnixMilli())
	})

	t.Run("struct body", func(t *testing.T) {
		got, ok := extract(updated{UpdatedAt: 1638867335122})
		assert.True(t, ok)
		assert.Equal(t, int64(1638867335122), got.UnixMilli())
	})

	t.Run("string body", func(t *testing.T) {
		_, ok := extract("x")
		assert.False(t, ok)
	})

	t.Run("non-numeric property", func(t *testing.T) {
		_, ok := extract(map[string]any{"updatedAt": "2021-12-07"})
		assert.False(t, ok)
	})

	t.Run("largest value in an array", func(t *testing.T) {
		got, ok := extract([]any{
			map[string]any{"updatedAt": float64(2)},
			map[string]any{},
			map[string]any{"updatedAt": float64(3)},
			map[string]any{"updatedAt": float64(1)},
		})
		assert.True(t, ok)
		assert.Equal(t, int64(3), got.UnixMilli())
	})

	t.Run("array of structs", func(t *testing.T) {
		got, ok := extract([]updated{{UpdatedAt: 5}, {UpdatedAt: 9}})
		assert.True(t, ok)
		assert.Equal(t, int64(9), got.UnixMilli())
	})

	t.Run("array without the property", func(t *testing.T) {
		_, ok := extract([]any{map[string]any{}, map[string]any{}})
		assert.False(t, ok)
	})
}
