package reconcile

import (
	"net/url"
	"path"
	"strings"
)

// RefKind classifies what ExtractFilename recognised in a page string.
type RefKind int

const (
	// RefMainPage is the site root ("/" or empty).
	RefMainPage RefKind = iota
	// RefFile is a final segment with a known extension.
	RefFile
	// RefURL is the final path segment of an absolute http(s) URL.
	RefURL
	// RefSegment is the final segment of a nested path without a known
	// extension, passed through as a best-effort filename.
	RefSegment
	// RefLink is an internal link label, not a file.
	RefLink
)

// Category groups known extensions.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
	CategoryMarkup   Category = "markup"
	CategoryOther    Category = "other"
)

// Labels used in journeys and file tables.
const (
	MainPageLabel = "Main page"
	LinkPrefix    = "Link: "
	NoJourney     = "No journey (session without clicks)"
)

// extensions is the decision table behind file detection. Matching is
// case-insensitive.
var extensions = map[string]Category{
	".jpg":  CategoryImage,
	".jpeg": CategoryImage,
	".png":  CategoryImage,
	".gif":  CategoryImage,
	".pdf":  CategoryDocument,
	".doc":  CategoryDocument,
	".docx": CategoryDocument,
	".txt":  CategoryDocument,
	".html": CategoryMarkup,
	".htm":  CategoryMarkup,
}

// FileRef is the result of ExtractFilename.
type FileRef struct {
	Name string
	Kind RefKind
}

// IsFile reports whether the reference names a file rather than a page.
func (r FileRef) IsFile() bool {
	return r.Kind == RefFile || r.Kind == RefURL || r.Kind == RefSegment
}

// Label renders the reference for journeys and tables.
func (r FileRef) Label() string {
	switch r.Kind {
	case RefMainPage:
		return MainPageLabel
	case RefLink:
		return LinkPrefix + r.Name
	}
	return r.Name
}

// ExtractFilename applies the page-to-file heuristic. It is not a URI parser:
// an extension match wins over URL parsing, which wins over raw passthrough
// of a nested path's last segment; anything else is an internal link.
func ExtractFilename(page string) FileRef {
	p := strings.TrimSpace(page)
	if p == "" || p == "/" {
		return FileRef{Kind: RefMainPage}
	}
	p = strings.TrimPrefix(p, "/")

	last := lastSegment(stripQuery(p))
	if _, ok := CategoryOf(last); ok {
		return FileRef{Name: last, Kind: RefFile}
	}

	if looksLikeURL(p) {
		if u, err := url.Parse(p); err == nil {
			seg := path.Base(u.Path)
			if seg == "." || seg == "/" || seg == "" {
				return FileRef{Kind: RefMainPage}
			}
			return FileRef{Name: seg, Kind: RefURL}
		}
	}

	if strings.Contains(p, "/") {
		if last != "" {
			return FileRef{Name: last, Kind: RefSegment}
		}
	}
	return FileRef{Name: p, Kind: RefLink}
}

// CategoryOf returns the category of name's extension. A query string or
// fragment after the extension is ignored.
func CategoryOf(name string) (Category, bool) {
	ext := strings.ToLower(path.Ext(stripQuery(name)))
	c, ok := extensions[ext]
	return c, ok
}

func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

func looksLikeURL(p string) bool {
	l := strings.ToLower(p)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
