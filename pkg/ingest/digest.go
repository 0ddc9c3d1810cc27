package ingest

import (
	"encoding/base64"
	"strings"
)

const digestPrefix = "sha-1=:"

// ParseContentDigest parses a Content-Digest header value of the form
// "sha-1=:<base64>:" (RFC 9530 dictionary with a single sha-1 member) and
// returns the base64 payload, which is stored verbatim as the media hash.
func ParseContentDigest(header string) (string, error) {
	if !strings.HasPrefix(header, digestPrefix) {
		return "", ErrMalformedDigest
	}
	payload, found := strings.CutSuffix(header[len(digestPrefix):], ":")
	if !found || payload == "" {
		return "", ErrMalformedDigest
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", ErrMalformedDigest
	}
	return payload, nil
}
