package definition

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// SourceKind enumerates where a definition document comes from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies a definition document.
type Source interface {
	Location() string
	Kind() SourceKind
}

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }
func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(p string) Source {
	return fileSource{path: filepath.Clean(p)}
}

type fsSource struct {
	name string
}

func (s fsSource) Location() string { return s.name }
func (s fsSource) Kind() SourceKind { return SourceKindFS }

// SourceFromFS returns a Source naming a file inside the loader's fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

type urlSource struct {
	raw string
}

func (s urlSource) Location() string { return s.raw }
func (s urlSource) Kind() SourceKind { return SourceKindURL }

// SourceFromURL returns a Source for an HTTP(S) endpoint. It panics on an
// invalid URL to surface configuration mistakes early; use ParseSource for
// user input.
func SourceFromURL(raw string) Source {
	src, err := parseURL(raw)
	if err != nil {
		panic(err.Error())
	}
	return src
}

// ParseSource picks a URL source for http(s) locations and a file source
// otherwise.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("definition: empty source")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return parseURL(raw)
	}
	return SourceFromFile(raw), nil
}

func parseURL(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("definition: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("definition: invalid URL %q: %w", raw, err)
	}
	return urlSource{raw: raw}, nil
}

// baseName returns the location's file name without extension, used as the
// definition id when the document does not carry one.
func baseName(src Source) string {
	loc := src.Location()
	if src.Kind() == SourceKindURL {
		if u, err := url.Parse(loc); err == nil {
			loc = u.Path
		}
	}
	name := path.Base(filepath.ToSlash(loc))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
