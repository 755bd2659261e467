package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/amaralkaff/tinder-clone/internal/store"
)

const (
	minAge = 18
	maxAge = 100
)

// profileRequest uses pointers so omitted fields stay distinguishable
// from zero values; the same struct serves create (POST) and partial
// update (PUT).
type profileRequest struct {
	Name     *string `json:"name"`
	Age      *int    `json:"age"`
	Location *string `json:"location"`
}

// GET/POST/PUT /profile
func (a *API) profileHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			a.showProfile(w, r)
		case http.MethodPost:
			a.createProfile(w, r)
		case http.MethodPut:
			a.updateProfile(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
}

func (a *API) showProfile(w http.ResponseWriter, r *http.Request) {
	person, ok := a.viewerPerson(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, person)
}

func (a *API) createProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int)

	if _, err := a.store.PersonByUserID(r.Context(), userID); err == nil {
		respondError(w, http.StatusConflict, "Profile already exists. Use PUT to update.")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Println("Error checking existing profile:", err)
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	errs := map[string][]string{}
	if req.Age == nil {
		errs["age"] = append(errs["age"], "age is required")
	} else if *req.Age < minAge || *req.Age > maxAge {
		errs["age"] = append(errs["age"], "age must be between 18 and 100")
	}
	if req.Location == nil || strings.TrimSpace(*req.Location) == "" {
		errs["location"] = append(errs["location"], "location is required")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		errs["name"] = append(errs["name"], "name must not be empty")
	}
	if len(errs) > 0 {
		respondErrors(w, errs)
		return
	}

	// Optional display name defaults to the registration name.
	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		user, err := a.store.UserByID(r.Context(), userID)
		if err != nil {
			log.Println("Error loading user for profile default name:", err)
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		name = user.Name
	}

	person, err := a.store.CreatePerson(r.Context(), userID, name, *req.Age, strings.TrimSpace(*req.Location))
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondError(w, http.StatusConflict, "Profile already exists. Use PUT to update.")
			return
		}
		log.Println("Error creating profile:", err)
		respondError(w, http.StatusInternalServerError, "Could not create profile")
		return
	}
	respondMessage(w, http.StatusCreated, "Profile created successfully", person)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	person, ok := a.viewerPerson(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	errs := map[string][]string{}
	if req.Age != nil && (*req.Age < minAge || *req.Age > maxAge) {
		errs["age"] = append(errs["age"], "age must be between 18 and 100")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		errs["name"] = append(errs["name"], "name must not be empty")
	}
	if req.Location != nil && strings.TrimSpace(*req.Location) == "" {
		errs["location"] = append(errs["location"], "location must not be empty")
	}
	if len(errs) > 0 {
		respondErrors(w, errs)
		return
	}

	updated, err := a.store.UpdatePerson(r.Context(), person.ID, store.PersonUpdate{
		Name:     req.Name,
		Age:      req.Age,
		Location: req.Location,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Profile not found. Please create your profile first.")
			return
		}
		log.Println("Error updating profile:", err)
		respondError(w, http.StatusInternalServerError, "Could not update profile")
		return
	}
	respondMessage(w, http.StatusOK, "Profile updated successfully", updated)
}
