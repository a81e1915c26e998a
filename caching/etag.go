package caching

import (
	"crypto/sha1"
	"encoding/base64"
	"strconv"
)

// WeakETag returns a weak entity tag for body: W/"<length in hex>-<first 27
// characters of the base64 SHA-1 digest>", the format of the npm etag
// package. Equal bodies always get equal tags.
func WeakETag(body []byte) string {
	sum := sha1.Sum(body)
	hash := base64.StdEncoding.EncodeToString(sum[:])[:27]
	return `W/"` + strconv.FormatInt(int64(len(body)), 16) + "-" + hash + `"`
}
