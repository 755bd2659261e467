package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/amaralkaff/tinder-clone/internal/store"
)

// POST /likes - swipe right on a person.
func (a *API) likesHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		person, ok := a.viewerPerson(w, r)
		if !ok {
			return
		}

		type LikeRequest struct {
			LikedID int `json:"liked_id"`
		}
		var req LikeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if req.LikedID <= 0 {
			respondErrors(w, map[string][]string{"liked_id": {"liked_id is required"}})
			return
		}

		like, err := a.store.RecordLike(r.Context(), person.ID, req.LikedID)
		switch {
		case errors.Is(err, store.ErrSelfReference):
			respondErrors(w, map[string][]string{"liked_id": {"You cannot like yourself"}})
		case errors.Is(err, store.ErrInvalidReference):
			respondErrors(w, map[string][]string{"liked_id": {"The selected liked_id is invalid"}})
		case errors.Is(err, store.ErrDuplicate):
			respondError(w, http.StatusConflict, "Already liked this person")
		case err != nil:
			log.Println("Error recording like:", err)
			respondError(w, http.StatusInternalServerError, "Could not record like")
		default:
			respondMessage(w, http.StatusCreated, "Person liked successfully", like)
		}
	})
}

// POST /dislikes - swipe left on a person.
func (a *API) dislikesHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		person, ok := a.viewerPerson(w, r)
		if !ok {
			return
		}

		type DislikeRequest struct {
			DislikedID int `json:"disliked_id"`
		}
		var req DislikeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if req.DislikedID <= 0 {
			respondErrors(w, map[string][]string{"disliked_id": {"disliked_id is required"}})
			return
		}

		dislike, err := a.store.RecordDislike(r.Context(), person.ID, req.DislikedID)
		switch {
		case errors.Is(err, store.ErrInvalidReference):
			respondErrors(w, map[string][]string{"disliked_id": {"The selected disliked_id is invalid"}})
		case errors.Is(err, store.ErrDuplicate):
			respondError(w, http.StatusConflict, "Already disliked this person")
		case err != nil:
			log.Println("Error recording dislike:", err)
			respondError(w, http.StatusInternalServerError, "Could not record dislike")
		default:
			respondMessage(w, http.StatusCreated, "Person disliked successfully", dislike)
		}
	})
}

// GET /liked-people - paginated list of people the viewer has liked.
// Accepts an explicit ?user_id= (profile id) for admin/debug use,
// otherwise resolves the viewer's own profile.
func (a *API) likedPeopleHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var viewerID int
		if raw := r.URL.Query().Get("user_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil || id < 1 {
				respondError(w, http.StatusBadRequest, "user_id must be a positive integer")
				return
			}
			viewerID = id
		} else {
			userID := r.Context().Value(userIDKey).(int)
			person, err := a.store.PersonByUserID(r.Context(), userID)
			if err != nil {
				respondError(w, http.StatusBadRequest, "user_id is required")
				return
			}
			viewerID = person.ID
		}

		page, perPage := pageParams(r)
		people, total, err := a.store.LikedPeople(r.Context(), viewerID, page, perPage)
		if err != nil {
			log.Println("Error listing liked people:", err)
			respondError(w, http.StatusInternalServerError, "Could not list liked people")
			return
		}
		respondList(w, people, newPagination(page, perPage, total))
	})
}
