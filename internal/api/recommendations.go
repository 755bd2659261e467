package api

import (
	"log"
	"net/http"
)

// GET /recommendations - paginated swipe candidates for the viewer.
// Excludes the viewer and everyone they already liked or disliked;
// newest profiles first. Running out of candidates is an empty page,
// not an error.
func (a *API) recommendationsHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		person, ok := a.viewerPerson(w, r)
		if !ok {
			return
		}

		page, perPage := pageParams(r)
		people, total, err := a.store.Recommend(r.Context(), person.ID, page, perPage)
		if err != nil {
			log.Println("Error building recommendations:", err)
			respondError(w, http.StatusInternalServerError, "Could not build recommendations")
			return
		}
		respondList(w, people, newPagination(page, perPage, total))
	})
}
