// Package api is the HTTP surface: a thin JSON layer translating
// requests into store operations.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/amaralkaff/tinder-clone/internal/store"
)

// API bundles the handlers' shared dependencies.
type API struct {
	store      store.Store
	jwtSecret  []byte
	uploadRoot string
}

func New(st store.Store, jwtSecret []byte, uploadRoot string) *API {
	return &API{store: st, jwtSecret: jwtSecret, uploadRoot: uploadRoot}
}

// Routes builds the request mux. Wrap it with WithCORS in main.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Auth
	mux.Handle("/register", a.registerHandler())
	mux.Handle("/login", a.loginHandler())
	mux.Handle("/logout", a.logoutHandler())
	mux.Handle("/user", a.userHandler())

	// Swiping
	mux.Handle("/recommendations", a.recommendationsHandler())
	mux.Handle("/likes", a.likesHandler())
	mux.Handle("/liked-people", a.likedPeopleHandler())
	mux.Handle("/dislikes", a.dislikesHandler())

	// Profile & pictures
	mux.Handle("/profile", a.profileHandler())
	mux.Handle("/profile/pictures", a.uploadPictureHandler())
	mux.Handle("/profile/pictures/", a.deletePictureHandler())

	// Uploaded images
	mux.Handle("/storage/", http.StripPrefix("/storage/",
		http.FileServer(http.Dir(a.uploadRoot))))

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}

// Pagination is the metadata block the client uses for "load more"
// decisions.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

func newPagination(page, perPage, total int) Pagination {
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	return Pagination{CurrentPage: page, PerPage: perPage, Total: total, LastPage: lastPage}
}

// --- Response helpers ---
// Every success body is {success: true, data: ..., pagination?: ...};
// every error body is {success: false, message/errors: ...}.

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{"success": true, "data": data})
}

func respondMessage(w http.ResponseWriter, status int, message string, data interface{}) {
	body := map[string]interface{}{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	writeJSON(w, status, body)
}

func respondList(w http.ResponseWriter, data interface{}, p Pagination) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"data":       data,
		"pagination": p,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "message": message})
}

// respondErrors carries field-level validation messages, 422 style.
func respondErrors(w http.ResponseWriter, errs map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"success": false,
		"errors":  errs,
	})
}

func pageParams(r *http.Request) (page, perPage int) {
	page = intQuery(r, "page", 1)
	perPage = intQuery(r, "per_page", store.DefaultPerPage)
	return store.NormalizePage(page, perPage)
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
