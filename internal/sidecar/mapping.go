package sidecar

import (
	"fmt"

	"github.com/pkg/errors"
)

// Mapping associates media file names with sidecar file names inside one
// folder. It is built once per folder and never modified afterwards.
type Mapping struct {
	pairs map[string]string
}

// NewMapping copies pairs into an immutable Mapping.
func NewMapping(pairs map[string]string) Mapping {
	m := Mapping{pairs: make(map[string]string, len(pairs))}
	for k, v := range pairs {
		m.pairs[k] = v
	}
	return m
}

// Lookup returns the sidecar name for a media base name.
func (m Mapping) Lookup(media string) (string, bool) {
	s, ok := m.pairs[media]
	return s, ok
}

// Len is the number of resolved media files.
func (m Mapping) Len() int { return len(m.pairs) }

// Pairs returns a copy of the underlying map.
func (m Mapping) Pairs() map[string]string {
	out := make(map[string]string, len(m.pairs))
	for k, v := range m.pairs {
		out[k] = v
	}
	return out
}

// MappingFatalError is an unrecoverable naming inconsistency. It aborts the
// mapping of the folder it occurred in, and only that folder.
type MappingFatalError struct {
	Folder  string
	Sidecar string
	Title   string
	Reason  string
}

func (e *MappingFatalError) Error() string {
	return fmt.Sprintf("sidecar mapping aborted for %q: %s (sidecar %q, title %q)", e.Folder, e.Reason, e.Sidecar, e.Title)
}

// IsMappingFatal reports whether err is, or wraps, a MappingFatalError.
func IsMappingFatal(err error) bool {
	var e *MappingFatalError
	return errors.As(err, &e)
}
