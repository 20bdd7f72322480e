// Package sidecar reconstructs which JSON sidecar belongs to which media
// file in a folder of a photo export, despite the exporter truncating
// titles and numbering duplicates inconsistently.
package sidecar

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"takeout-sifter/internal/media"
)

// Resolver builds per-folder Mappings.
type Resolver struct {
	fs  afero.Fs
	log *slog.Logger
}

// NewResolver returns a Resolver reading from fs.
func NewResolver(fs afero.Fs, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{fs: fs, log: log}
}

// Resolve maps the media files of folder to their sidecars. Unparseable and
// non per-item JSON documents are skipped. A *MappingFatalError means the
// folder's naming could not be reconciled and no mapping is returned.
func (r *Resolver) Resolve(folder string) (Mapping, error) {
	entries, err := afero.ReadDir(r.fs, folder)
	if err != nil {
		return Mapping{}, errors.Wrapf(err, "list %s", folder)
	}

	present := make(map[string]bool, len(entries))
	var sidecars []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		present[e.Name()] = true
		if media.IsSidecarDocument(e.Name()) {
			sidecars = append(sidecars, e.Name())
		}
	}
	// image.jpg(2).json before image.jpg(10).json
	sort.Slice(sidecars, func(i, j int) bool { return natural.Less(sidecars[i], sidecars[j]) })

	exists := func(name string) bool { return present[name] }
	pairs := make(map[string]string)

	for _, name := range sidecars {
		path := filepath.Join(folder, name)
		b, err := afero.ReadFile(r.fs, path)
		if err != nil {
			r.log.Error("read sidecar", "path", path, "signal", "sidecar", "error", err)
			continue
		}
		doc, err := ParseDocument(b)
		if err != nil {
			r.log.Warn("skipping unparseable json", "path", path, "signal", "sidecar", "error", err)
			continue
		}
		if !doc.PerItem {
			r.log.Debug("skipping non per-item json", "path", path)
			continue
		}

		out := resolve(resolution{
			folder:  folder,
			sidecar: newSidecarName(name),
			target:  newTarget(doc.Title),
			exists:  exists,
		})
		for _, is := range out.issues {
			r.log.Log(context.Background(), is.level, is.msg, append([]any{"path", path, "signal", "sidecar", "folder", folder}, is.attrs...)...)
		}
		if out.fatal != nil {
			r.log.Error("sidecar mapping aborted", "path", path, "signal", "sidecar", "folder", folder, "reason", out.fatal.Reason)
			return Mapping{}, out.fatal
		}
		for _, p := range out.pairs {
			prev, ok := pairs[p.media]
			switch {
			case !ok:
				pairs[p.media] = p.sidecar
				r.log.Debug("sidecar mapped", "folder", folder, "media", p.media, "sidecar", p.sidecar)
			case prev != p.sidecar:
				r.log.Error("conflicting sidecar for media, keeping first", "path", path, "signal", "sidecar", "folder", folder, "media", p.media, "kept", prev, "rejected", p.sidecar)
			}
		}
	}
	return Mapping{pairs: pairs}, nil
}
