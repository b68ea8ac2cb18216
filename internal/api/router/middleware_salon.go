package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/GerganaNoneva/beautysalon/internal/http/middleware"
)

// requireSalonAccess rejects admins whose token is scoped to another salon.
// It must run inside a route that binds {salonID}.
func requireSalonAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		salonID := strings.TrimSpace(chi.URLParam(r, "salonID"))
		if salonID == "" {
			http.Error(w, `{"error": "missing salon id"}`, http.StatusBadRequest)
			return
		}
		if !httpmiddleware.AdminCanManage(r.Context(), salonID) {
			http.Error(w, `{"error": "forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
