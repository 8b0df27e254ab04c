// Package site serves the landing page that links the dashboard and API docs.
package site

import (
	"context"
	"net/http"
)

// indexPage is the landing page file inside the embedded site.
const indexPage = "index.html"

// Register attaches the landing page to the bare root of mux. Any other
// unmatched path stays a 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/{$}", NewRootHandler())
}

// RootHandler handles root path requests.
type RootHandler struct{}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// ServeHTTP handles GET / requests with the embedded landing page.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	http.ServeFileFS(w, r, FS(), indexPage)
}
