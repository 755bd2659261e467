package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/amaralkaff/tinder-clone/internal/store"
)

// UserIDKey is the key type for storing the authenticated user id in
// the request context.
type UserIDKey string

const userIDKey UserIDKey = "userID"

const tokenTTL = 24 * time.Hour

func (a *API) registerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		type RegisterRequest struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		errs := map[string][]string{}
		if req.Name == "" {
			errs["name"] = append(errs["name"], "name is required")
		}
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			errs["email"] = append(errs["email"], "a valid email is required")
		}
		if len(req.Password) < 8 {
			errs["password"] = append(errs["password"], "password must be at least 8 characters")
		}
		if len(errs) > 0 {
			respondErrors(w, errs)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("Error hashing password:", err)
			respondError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		user, err := a.store.CreateUser(r.Context(), req.Name, req.Email, string(hashedPassword))
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				respondError(w, http.StatusConflict, "Email already registered")
				return
			}
			log.Println("Error saving user:", err)
			respondError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		token, err := a.issueToken(user.ID)
		if err != nil {
			log.Println("Error generating token for new user:", err)
			respondError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		respondData(w, http.StatusCreated, map[string]interface{}{"token": token, "user": user})
	}
}

func (a *API) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		type LoginRequest struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		user, err := a.store.UserByEmail(r.Context(), req.Email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			log.Println("Error querying user:", err)
			respondError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := a.issueToken(user.ID)
		if err != nil {
			log.Println("Error generating token:", err)
			respondError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		respondData(w, http.StatusOK, map[string]interface{}{"token": token, "user": user})
	}
}

// Tokens are stateless, so logout only acknowledges; revocation would
// belong to the session collaborator.
func (a *API) logoutHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		respondMessage(w, http.StatusOK, "Logged out successfully", nil)
	})
}

// GET /user - the authenticated account.
func (a *API) userHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)
		user, err := a.store.UserByID(r.Context(), userID)
		if err != nil {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		respondData(w, http.StatusOK, user)
	})
}

func (a *API) issueToken(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"expires": time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(a.jwtSecret)
}

func (a *API) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			return a.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		userID, ok := claims["user_id"].(float64)
		if !ok {
			respondError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		if expires, ok := claims["expires"].(float64); ok && time.Now().Unix() > int64(expires) {
			respondError(w, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, int(userID))))
	}
}

// viewerPerson resolves the authenticated user's profile. Writes the
// 404 response itself when the profile does not exist yet.
func (a *API) viewerPerson(w http.ResponseWriter, r *http.Request) (store.Person, bool) {
	userID := r.Context().Value(userIDKey).(int)
	person, err := a.store.PersonByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Profile not found. Please create your profile first.")
		} else {
			log.Println("Error loading profile:", err)
			respondError(w, http.StatusInternalServerError, "Database error")
		}
		return store.Person{}, false
	}
	return person, true
}
