package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikesSuite(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)
		token, viewerID := h.newMember("Alice", "alice@example.com", 27)
		_, targetID := h.newMember("Bob", "bob@example.com", 30)

		rr := h.do(http.MethodPost, "/likes", token, map[string]int{"liked_id": targetID})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		body := h.decode(rr)
		assert.Equal(t, "Person liked successfully", body["message"])
		data := body["data"].(map[string]interface{})
		assert.Equal(t, float64(viewerID), data["liker_id"])
		assert.Equal(t, float64(targetID), data["liked_id"])
	})

	t.Run("DuplicateConflicts", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)
		_, targetID := h.newMember("Bob", "bob@example.com", 30)

		rr := h.do(http.MethodPost, "/likes", token, map[string]int{"liked_id": targetID})
		require.Equal(t, http.StatusCreated, rr.Code)
		rr = h.do(http.MethodPost, "/likes", token, map[string]int{"liked_id": targetID})
		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "Already liked this person", h.decode(rr)["message"])
	})

	t.Run("SelfLikeRejected", func(t *testing.T) {
		h := newHarness(t)
		token, viewerID := h.newMember("Alice", "alice@example.com", 27)

		rr := h.do(http.MethodPost, "/likes", token, map[string]int{"liked_id": viewerID})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		errs := h.decode(rr)["errors"].(map[string]interface{})
		msgs := errs["liked_id"].([]interface{})
		assert.Contains(t, msgs, "You cannot like yourself")
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)

		rr := h.do(http.MethodPost, "/likes", token, map[string]int{"liked_id": 9999})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		errs := h.decode(rr)["errors"].(map[string]interface{})
		assert.Contains(t, errs, "liked_id")
	})

	t.Run("MissingLikedID", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)

		rr := h.do(http.MethodPost, "/likes", token, map[string]int{})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("RequiresProfile", func(t *testing.T) {
		h := newHarness(t)
		token := h.register("Alice", "alice@example.com")

		rr := h.do(http.MethodPost, "/likes", token, map[string]int{"liked_id": 1})
		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Profile not found. Please create your profile first.", h.decode(rr)["message"])
	})
}

func TestDislikesSuite(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)
		_, targetID := h.newMember("Bob", "bob@example.com", 30)

		rr := h.do(http.MethodPost, "/dislikes", token, map[string]int{"disliked_id": targetID})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, "Person disliked successfully", h.decode(rr)["message"])
	})

	t.Run("SelfDislikeAccepted", func(t *testing.T) {
		// Dislikes carry no self-reference rule; only likes do.
		h := newHarness(t)
		token, viewerID := h.newMember("Alice", "alice@example.com", 27)

		rr := h.do(http.MethodPost, "/dislikes", token, map[string]int{"disliked_id": viewerID})
		assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	})

	t.Run("DuplicateConflicts", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)
		_, targetID := h.newMember("Bob", "bob@example.com", 30)

		rr := h.do(http.MethodPost, "/dislikes", token, map[string]int{"disliked_id": targetID})
		require.Equal(t, http.StatusCreated, rr.Code)
		rr = h.do(http.MethodPost, "/dislikes", token, map[string]int{"disliked_id": targetID})
		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "Already disliked this person", h.decode(rr)["message"])
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)

		rr := h.do(http.MethodPost, "/dislikes", token, map[string]int{"disliked_id": 9999})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestLikedPeopleSuite(t *testing.T) {
	t.Run("ViewersOwnList", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)
		_, bobID := h.newMember("Bob", "bob@example.com", 30)
		_, carolID := h.newMember("Carol", "carol@example.com", 25)
		h.newMember("Dave", "dave@example.com", 35)

		for _, id := range []int{bobID, carolID} {
			rr := h.do(http.MethodPost, "/likes", token, map[string]int{"liked_id": id})
			require.Equal(t, http.StatusCreated, rr.Code)
		}

		rr := h.do(http.MethodGet, "/liked-people", token, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		body := h.decode(rr)
		ids := dataIDs(t, body)
		assert.ElementsMatch(t, []int{bobID, carolID}, ids)

		p := body["pagination"].(map[string]interface{})
		assert.Equal(t, float64(1), p["current_page"])
		assert.Equal(t, float64(15), p["per_page"])
		assert.Equal(t, float64(2), p["total"])
		assert.Equal(t, float64(1), p["last_page"])
	})

	t.Run("ExplicitUserID", func(t *testing.T) {
		h := newHarness(t)
		aliceToken, _ := h.newMember("Alice", "alice@example.com", 27)
		bobToken, bobID := h.newMember("Bob", "bob@example.com", 30)
		_, carolID := h.newMember("Carol", "carol@example.com", 25)

		rr := h.do(http.MethodPost, "/likes", bobToken, map[string]int{"liked_id": carolID})
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = h.do(http.MethodGet, fmt.Sprintf("/liked-people?user_id=%d", bobID), aliceToken, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []int{carolID}, dataIDs(t, h.decode(rr)))
	})

	t.Run("BadUserID", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)
		rr := h.do(http.MethodGet, "/liked-people?user_id=abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("NoProfileNoUserID", func(t *testing.T) {
		h := newHarness(t)
		token := h.register("Alice", "alice@example.com")
		rr := h.do(http.MethodGet, "/liked-people", token, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "user_id is required", h.decode(rr)["message"])
	})
}
