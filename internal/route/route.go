// Package route resolves reader locations and keeps location history.
//
// Locations are paths: "/" is the library, "/book/{slug}" a book's landing
// page and "/{slug}/{pageNumber}" a page.
package route

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/pkg/models"
)

// Kind is the kind of view a location names.
type Kind int

const (
	KindLibrary Kind = iota
	KindLanding
	KindPage
)

func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindLanding:
		return "landing"
	case KindPage:
		return "page"
	default:
		return "unknown"
	}
}

// Route patterns.
const (
	PatternLibrary = "/"
	PatternLanding = "/book/{slug}"
	PatternPage    = "/{slug}/{pageNumber}"
)

// Location is a resolved path.
type Location struct {
	Kind Kind
	Path string
	Slug string
	Page int
	Book *models.Book
}

// Catalog looks books up by slug.
type Catalog interface {
	Get(slug string) (*models.Book, error)
}

// Resolver matches paths against the route patterns.
type Resolver struct {
	mux     *chi.Mux
	catalog Catalog
}

// NewResolver creates a resolver over catalog.
func NewResolver(catalog Catalog) *Resolver {
	// Handlers are never served; the mux is used for matching only.
	noop := func(http.ResponseWriter, *http.Request) {}
	mux := chi.NewRouter()
	mux.Get(PatternLibrary, noop)
	mux.Get(PatternLanding, noop)
	mux.Get(PatternPage, noop)
	return &Resolver{mux: mux, catalog: catalog}
}

// Resolve resolves path. Unknown routes, unknown books, non-numeric pages
// and pages outside the book are not found.
func (r *Resolver) Resolve(path string) (Location, error) {
	path = Clean(path)

	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, path) {
		return Location{}, apperr.NotFoundf("no route for %q", path)
	}

	switch rctx.RoutePattern() {
	case PatternLibrary:
		return Location{Kind: KindLibrary, Path: path}, nil

	case PatternLanding:
		slug := rctx.URLParam("slug")
		b, err := r.catalog.Get(slug)
		if err != nil {
			return Location{}, err
		}
		return Location{Kind: KindLanding, Path: path, Slug: slug, Book: b}, nil

	case PatternPage:
		slug := rctx.URLParam("slug")
		b, err := r.catalog.Get(slug)
		if err != nil {
			return Location{}, err
		}
		page, err := strconv.Atoi(rctx.URLParam("pageNumber"))
		if err != nil || page < 1 || page > b.TotalPages() {
			return Location{}, apperr.NotFoundf("book %q has no page %q", slug, rctx.URLParam("pageNumber"))
		}
		return Location{Kind: KindPage, Path: path, Slug: slug, Page: page, Book: b}, nil
	}

	return Location{}, apperr.NotFoundf("no route for %q", path)
}

// Clean normalizes a path: leading slash, no trailing slash.
func Clean(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// PagePath returns the location of a page.
func PagePath(slug string, page int) string {
	return fmt.Sprintf("/%s/%d", slug, page)
}

// LandingPath returns the location of a book's landing page.
func LandingPath(slug string) string {
	return "/book/" + slug
}

// LibraryPath is the library location.
const LibraryPath = PatternLibrary
