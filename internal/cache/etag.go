package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ETag derives a strong validator from an encoded response body. The hash
// is truncated to 16 bytes to keep header sizes reasonable.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf(`"%s"`, hex.EncodeToString(sum[:16]))
}

// LastModified formats a time as an HTTP Last-Modified header value
func LastModified(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// NotModified reports whether a conditional GET can be answered with 304.
// If-None-Match takes precedence over If-Modified-Since; a present but
// non-matching If-None-Match disables the time check entirely.
func NotModified(r *http.Request, etag string, lastModified time.Time) bool {
	if header := r.Header.Get("If-None-Match"); header != "" {
		return etagMatches(etag, header)
	}

	header := r.Header.Get("If-Modified-Since")
	if header == "" || lastModified.IsZero() {
		return false
	}
	since, err := http.ParseTime(header)
	if err != nil {
		return false
	}
	return !lastModified.Truncate(time.Second).After(since)
}

// etagMatches checks one ETag against an If-None-Match header value using
// weak comparison, which is what 304 evaluation calls for.
func etagMatches(etag, header string) bool {
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}
