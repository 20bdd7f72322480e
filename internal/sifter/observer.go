package sifter

import "takeout-sifter/internal/media"

// Outcome is what happened to one file during a scan.
type Outcome int

const (
	OutcomeProcessed   Outcome = iota // new record appended
	OutcomeResumed                    // already in the report
	OutcomeSidecar                    // metadata companion, not a record
	OutcomeUnsupported                // unrecognised extension
	OutcomeSkipped                    // folder mapping aborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeResumed:
		return "resumed"
	case OutcomeSidecar:
		return "sidecar"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Observer receives scan events so callers can render progress without
// the scan writing to stdout. Calls come from the scanning goroutine only.
type Observer interface {
	// OnFolder is called once a folder's sidecars are resolved. err is the
	// mapping failure that made the folder's files be skipped, if any.
	OnFolder(dir string, mapped int, err error)
	// OnFile is called for every regular file visited.
	OnFile(path string, kind media.Kind, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) OnFolder(string, int, error)        {}
func (nopObserver) OnFile(string, media.Kind, Outcome) {}
