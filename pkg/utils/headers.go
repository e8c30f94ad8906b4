package utils

import (
	"net/http"
	"net/textproto"
	"strings"
)

// HeaderMap is a case-insensitive view over request headers. Berlin Group
// header names arrive in arbitrary casing from TPPs.
type HeaderMap struct {
	values map[string]string
}

// NewHeaderMap builds a HeaderMap from an http.Header, keeping only the first
// value of each header.
func NewHeaderMap(h http.Header) *HeaderMap {
	values := make(map[string]string, len(h))
	for key, v := range h {
		if len(v) > 0 {
			values[textproto.CanonicalMIMEHeaderKey(key)] = v[0]
		}
	}
	return &HeaderMap{values: values}
}

// NewHeaderMapFromPairs builds a HeaderMap from plain key/value pairs.
func NewHeaderMapFromPairs(pairs map[string]string) *HeaderMap {
	values := make(map[string]string, len(pairs))
	for key, v := range pairs {
		values[textproto.CanonicalMIMEHeaderKey(key)] = v
	}
	return &HeaderMap{values: values}
}

// Get returns the header value for the given name, ignoring case.
func (m *HeaderMap) Get(name string) string {
	return m.values[textproto.CanonicalMIMEHeaderKey(name)]
}

// Has reports whether the header is present with a non-blank value.
func (m *HeaderMap) Has(name string) bool {
	return strings.TrimSpace(m.Get(name)) != ""
}
