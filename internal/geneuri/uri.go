// Package geneuri parses and normalizes the scheme://authority/path URIs
// GeneFlow uses to address data across backends. GeneFlow URIs are not
// general URLs: bare paths are implicitly "local", authority is optional
// and scheme-dependent, and the parsed form carries extra derived fields
// (ChoppedPath, Folder, Name) downstream code relies on. net/url does not
// model any of this, so the grammar is hand-parsed.
package geneuri

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
)

// ErrInvalidURI is returned for any URI string that fails to parse.
var ErrInvalidURI = errors.New("invalid uri")

// Schemes recognized by Parse. http/https are accepted only because the
// Notifier addresses webhook endpoints with them; the Data Manager never
// registers handlers for them.
var validSchemes = map[string]bool{
	"local": true,
	"agave": true,
	"http":  true,
	"https": true,
}

// URI is the parsed, normalized form of a GeneFlow location.
type URI struct {
	Scheme      string
	Authority   string
	Path        string
	ChoppedPath string
	Folder      string
	Name        string
}

const schemeSep = "://"

// Parse parses raw into a normalized URI. Bare paths (no "scheme://"
// prefix) are treated as local://<path>. Returns ErrInvalidURI for empty
// paths, unrecognized schemes, or malformed authorities.
func Parse(raw string) (URI, error) {
	scheme, authority, rawPath, err := split(raw)
	if err != nil {
		return URI{}, err
	}
	if !validSchemes[scheme] {
		return URI{}, errf("unknown scheme %q", scheme)
	}
	if scheme != "local" && authority == "" {
		return URI{}, errf("missing authority for scheme %q", scheme)
	}

	if scheme == "local" {
		rawPath = expandHome(rawPath)
	}
	if rawPath == "" {
		return URI{}, errf("empty path in %q", raw)
	}

	chopped := chop(rawPath)
	folder, name := split2(chopped)

	// Path carries the normalized form (dot segments resolved, duplicate
	// slashes collapsed); only the trailing slash distinguishes it from
	// ChoppedPath.
	normPath := chopped
	if strings.HasSuffix(rawPath, "/") && chopped != "" {
		normPath = chopped + "/"
	}

	return URI{
		Scheme:      scheme,
		Authority:   authority,
		Path:        normPath,
		ChoppedPath: chopped,
		Folder:      folder,
		Name:        name,
	}, nil
}

// split separates raw into scheme, authority, and raw path per the rules
// in the package doc: for the local scheme, authority is always empty and
// the entire remainder is the path (so relative local paths survive a
// format/reparse round trip without authority-eating).
func split(raw string) (scheme, authority, rawPath string, err error) {
	idx := strings.Index(raw, schemeSep)
	if idx < 0 {
		return "local", "", raw, nil
	}
	scheme = raw[:idx]
	rest := raw[idx+len(schemeSep):]
	if scheme == "local" {
		return scheme, "", rest, nil
	}
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		// Authority-only, e.g. "agave://system": the path is the root.
		// ChoppedURI emits exactly this form for a root path, so the
		// reparse must accept it for the round trip to hold.
		return scheme, rest, "/", nil
	}
	return scheme, rest[:slash], rest[slash:], nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return home + p[1:]
}

// chop collapses duplicate slashes, resolves "."/".." segments, and
// strips any trailing slash.
func chop(p string) string {
	cleaned := path.Clean(p)
	switch cleaned {
	case ".":
		return ""
	case "/":
		return ""
	default:
		return cleaned
	}
}

func split2(choppedPath string) (folder, name string) {
	if choppedPath == "" {
		return "", ""
	}
	return path.Dir(choppedPath), path.Base(choppedPath)
}

// ChoppedURI recomposes the scheme, authority, and chopped path into a
// single string. Reparsing it is idempotent: Parse(u.ChoppedURI()) yields
// a URI whose ChoppedURI() is unchanged.
func (u URI) ChoppedURI() string {
	return u.Scheme + schemeSep + u.Authority + u.ChoppedPath
}

// Format is an alias for ChoppedURI: Parse(Format(Parse(u))) == Parse(u).
func (u URI) Format() string {
	return u.ChoppedURI()
}

// Join returns the URI for segment appended under u (u.ChoppedPath +
// "/" + segment), re-deriving Folder/Name the same way Parse would.
func (u URI) Join(segment string) URI {
	childPath := u.ChoppedPath + "/" + segment
	chopped := chop(childPath)
	folder, name := split2(chopped)
	return URI{
		Scheme:      u.Scheme,
		Authority:   u.Authority,
		Path:        chopped,
		ChoppedPath: chopped,
		Folder:      folder,
		Name:        name,
	}
}

func errf(format string, args ...any) error {
	return &parseError{msg: fmt.Sprintf(format, args...)}
}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }
func (e *parseError) Unwrap() error { return ErrInvalidURI }
