package cleanup

import (
	"errors"
	"strings"
)

var errInvalidDataURI = errors.New("invalid image data format")

// DataURI: a split "metadata,payload" image reference
type DataURI struct {
	Metadata string
	Payload  string
}

// ParseDataURI: splits a data URI on its first comma. Both halves must be non-empty.
func ParseDataURI(s string) (DataURI, error) {
	meta, payload, ok := strings.Cut(s, ",")
	if !ok || strings.TrimSpace(meta) == "" || strings.TrimSpace(payload) == "" {
		return DataURI{}, errInvalidDataURI
	}
	return DataURI{Metadata: meta, Payload: payload}, nil
}
