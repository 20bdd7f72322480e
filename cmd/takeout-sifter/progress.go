package main

import (
	"io"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"takeout-sifter/internal/media"
	"takeout-sifter/internal/sifter"
)

var _ sifter.Observer = (*progress)(nil)

// progress renders scan events as a spinner with a file count. The total
// is unknown up front, the tree is walked once.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer) *progress {
	return &progress{bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *progress) OnFolder(dir string, _ int, _ error) {
	p.bar.Describe(filepath.Base(dir))
}

func (p *progress) OnFile(_ string, kind media.Kind, _ sifter.Outcome) {
	if kind.IsMedia() {
		_ = p.bar.Add(1)
	}
}

// Finish completes the spinner.
func (p *progress) Finish() {
	_ = p.bar.Finish()
}
