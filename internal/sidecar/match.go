package sidecar

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// titleLimit is where the exporter cuts titles when naming sidecars.
	titleLimit = 46
	// maxNumberedIndex bounds the walk over name(1).ext, name(2).ext, ...
	maxNumberedIndex = 20
	// defaultMediaExt is assumed when a short title carries no extension.
	defaultMediaExt = ".jpg"
)

var (
	// splitExtRE matches a truncated name ending in a dot plus at most two
	// characters of the cut-off extension.
	splitExtRE = regexp.MustCompile(`^(.*)\..?.?$`)
	// numberedStemRE matches sidecar stems like "image.jpg(3)" or "IMG.j(1)".
	numberedStemRE = regexp.MustCompile(`^(.*)\.\w{1,4}\(\d+\)$`)
	// shortExtRE matches a name whose extension was cut to one or two characters.
	shortExtRE = regexp.MustCompile(`^(.*)(\.\w{1,2})$`)
)

// target is the media name a sidecar's title points at, normalised the way
// the exporter normalises names.
type target struct {
	title     string // title with apostrophes replaced
	truncated string // title cut to titleLimit characters
	ext       string // extension of the title, or defaultMediaExt
	long      bool   // title exceeded titleLimit
	addExt    bool   // ext must be appended to the truncated name
}

func newTarget(title string) target {
	t := target{
		title: strings.ReplaceAll(title, "'", "_"),
		ext:   filepath.Ext(title),
	}
	switch {
	case utf8.RuneCountInString(title) > titleLimit:
		t.long = true
		t.addExt = true
	case t.ext == "":
		t.ext = defaultMediaExt
		t.addExt = true
	}
	t.truncated = truncate(t.title, titleLimit)
	return t
}

// sidecarName is a sidecar file name split into stem and extension.
type sidecarName struct {
	name string // image.jpg(1).json
	stem string // image.jpg(1)
	ext  string // .json
}

func newSidecarName(name string) sidecarName {
	ext := filepath.Ext(name)
	return sidecarName{name: name, stem: strings.TrimSuffix(name, ext), ext: ext}
}

// resolution is everything needed to resolve a single sidecar. It is built
// per sidecar and not modified while resolving.
type resolution struct {
	folder  string
	sidecar sidecarName
	target  target
	exists  func(name string) bool
}

type pair struct {
	media   string
	sidecar string
}

type issue struct {
	level slog.Level
	msg   string
	attrs []any
}

// outcome is the result of resolving one sidecar.
type outcome struct {
	pairs  []pair
	issues []issue
	fatal  *MappingFatalError
}

func (o *outcome) add(media, sidecar string) {
	o.pairs = append(o.pairs, pair{media: media, sidecar: sidecar})
}

func (o *outcome) note(level slog.Level, msg string, attrs ...any) {
	o.issues = append(o.issues, issue{level: level, msg: msg, attrs: attrs})
}

func (rc resolution) fail(reason string) outcome {
	return outcome{fatal: &MappingFatalError{
		Folder:  rc.folder,
		Sidecar: rc.sidecar.name,
		Title:   rc.target.title,
		Reason:  reason,
	}}
}

// resolve picks the branch for one sidecar. Most sidecars are named after
// their (truncated) title; the rest must be numbered variants.
func resolve(rc resolution) outcome {
	if rc.target.truncated == rc.sidecar.stem {
		return resolveDirect(rc)
	}
	return resolveNumbered(rc)
}

// resolveDirect handles image.jpg -> image.jpg.json, including titles cut
// at 46 characters and the occasional 47 character cut.
func resolveDirect(rc resolution) outcome {
	var out outcome
	t := rc.target

	name := t.truncated
	if t.long {
		if m := splitExtRE.FindStringSubmatch(name); m != nil {
			name = m[1]
		}
	}
	if t.addExt {
		name += t.ext
	}

	if rc.exists(name) {
		out.add(name, rc.sidecar.name)
		return out
	}
	if t.long {
		name47 := truncate(t.title, titleLimit+1) + t.ext
		if rc.exists(name47) {
			out.note(slog.LevelWarn, "media file matched with 47 character title", "media", name47, "sidecar", rc.sidecar.name)
			out.add(name47, rc.sidecar.name)
			return out
		}
		name = name47
	}
	out.note(slog.LevelError, "media file for sidecar not found", "media", name, "sidecar", rc.sidecar.name)
	return out
}

// resolveNumbered handles the exporter's two numbering schemes. Media
// duplicates are named image(1).jpg while their sidecars are named
// image.jpg(1).json; an upload genuinely called image(1).jpg gets
// image(1).jpg.json and shifts every later sidecar index down by one.
func resolveNumbered(rc resolution) outcome {
	m := numberedStemRE.FindStringSubmatch(rc.sidecar.stem)
	if m == nil {
		return rc.fail("sidecar name matches neither its title nor the numbered pattern")
	}
	base := m[1]
	t := rc.target

	// the sidecar may carry a truncated extension that the media name does not
	name, sidecarExt := t.truncated, t.ext
	if sm := shortExtRE.FindStringSubmatch(name); sm != nil {
		name, sidecarExt = sm[1], sm[2]
	}
	if t.addExt {
		name += t.ext
	}
	if base+t.ext != name {
		return rc.fail(fmt.Sprintf("numbered base %q does not match title", base))
	}

	var out outcome
	offset := 0
	for i := 0; i < maxNumberedIndex; i++ {
		media := base + t.ext
		side := base + sidecarExt + rc.sidecar.ext
		if i > 0 {
			media = fmt.Sprintf("%s(%d)%s", base, i, t.ext)
			side = fmt.Sprintf("%s%s(%d)%s", base, sidecarExt, i+offset, rc.sidecar.ext)
		}
		mediaOK, sideOK := rc.exists(media), rc.exists(side)

		switch {
		case mediaOK && sideOK:
			alt := fmt.Sprintf("%s(%d)%s%s", base, i, sidecarExt, rc.sidecar.ext)
			if rc.exists(alt) {
				// side belongs to the next media index
				offset--
				out.note(slog.LevelWarn, "numbered sidecar index shifted", "base", base, "index", i, "offset", offset)
				continue
			}
			out.add(media, side)
		case mediaOK || sideOK:
			out.note(slog.LevelError, "numbered pair incomplete", "index", i, "media", media, "media_exists", mediaOK, "sidecar", side, "sidecar_exists", sideOK)
		case i == 0:
			return rc.fail(fmt.Sprintf("numbered walk found neither %q nor %q", media, side))
		default:
			return out
		}
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
