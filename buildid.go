package buildwatch

import (
	"regexp"
	"sync"
)

// buildPathPattern matches the numeric build reference in a page path,
// e.g. "/coprs/alice/demo/build/1234/".
var buildPathPattern = regexp.MustCompile(`/build/(\d+)`)

// BuildIDFromPath extracts the build id from a page URL path.
// It returns false when the path carries no numeric build reference.
func BuildIDFromPath(path string) (BuildID, bool) {
	m := buildPathPattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return BuildID(m[1]), true
}

// PageContext reports the URL path of the page being mirrored. It is called
// on every polling tick, so a page that navigates is followed.
type PageContext interface {
	Path() string
}

// StaticPage is a [PageContext] whose path never changes.
type StaticPage string

// Path returns the page path.
func (p StaticPage) Path() string {
	return string(p)
}

// Page is a [PageContext] whose path can be changed at runtime, e.g. by a
// router callback. The zero value is an empty path.
type Page struct {
	mu   sync.RWMutex
	path string
}

// NewPage returns a [Page] starting at path.
func NewPage(path string) *Page {
	return &Page{path: path}
}

// Path returns the current path.
func (p *Page) Path() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.path
}

// Navigate replaces the current path.
func (p *Page) Navigate(path string) {
	p.mu.Lock()
	p.path = path
	p.mu.Unlock()
}
