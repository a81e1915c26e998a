/*
Package caching decides the caching headers and conditional status of a JSON
response.

Negotiate is pure: it takes the response about to be sent, the logical body,
Options and the request's ConditionalHeaders, and returns the response to
send instead. It adds a weak ETag computed over the serialized body, and
Cache-Control, Last-Modified and Expires when Options ask for them.

A request whose If-None-Match equals the ETag gets 304 Not Modified. When it
does not, If-Modified-Since is compared with Last-Modified at one second
resolution. A 304 keeps the caching headers and drops the body.

	resp := caching.Negotiate(
		caching.Response{StatusCode: http.StatusOK, Headers: h, Body: body},
		items,
		caching.Options{
			CacheControl: "private, max-age=60",
			LastModified: caching.LastModifiedFromProperty("updatedAt"),
			MaxAge:       time.Minute,
		},
		caching.ConditionalHeadersFrom(r.Header),
	)
*/
package caching
