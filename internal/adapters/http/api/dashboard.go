package api

import (
	"net/http"
)

// dashboardHandler serves the embedded single-page dashboard.
type dashboardHandler struct{}

func newDashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard handles GET /dashboard requests. The page talks to the
// JSON endpoints of this package and renders the class table, trends and
// flagged students for the selected role.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}
