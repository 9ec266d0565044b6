package handler

import (
	"net/http"

	"github.com/olahtaxi/taxirelay/internal/api/response"
)

// Banner is the liveness text served at the root path.
const Banner = "OLAH bestel taxi server running ✅"

// Root handles GET /.
func Root(w http.ResponseWriter, r *http.Request) {
	response.Text(w, r, http.StatusOK, Banner)
}

// NotFound handles unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, r, "no route for "+r.Method+" "+r.URL.Path)
}
