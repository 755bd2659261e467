package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amaralkaff/tinder-clone/internal/store"
)

// harness wires the API onto the in-memory store and a throwaway
// upload directory, and speaks JSON over the real mux.
type harness struct {
	t         *testing.T
	api       *API
	mem       *store.Memory
	mux       *http.ServeMux
	uploadDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := store.NewMemory()
	uploadDir := t.TempDir()
	a := New(mem, []byte("test-secret"), uploadDir)
	return &harness{t: t, api: a, mem: mem, mux: a.Routes(), uploadDir: uploadDir}
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.mux.ServeHTTP(rr, req)
	return rr
}

func (h *harness) decode(rr *httptest.ResponseRecorder) map[string]interface{} {
	h.t.Helper()
	var body map[string]interface{}
	require.NoError(h.t, json.Unmarshal(rr.Body.Bytes(), &body), "body: %s", rr.Body.String())
	return body
}

// register creates an account and returns its bearer token.
func (h *harness) register(name, email string) string {
	h.t.Helper()
	rr := h.do(http.MethodPost, "/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "sup3rsecret",
	})
	require.Equal(h.t, http.StatusCreated, rr.Code, rr.Body.String())
	data := h.decode(rr)["data"].(map[string]interface{})
	return data["token"].(string)
}

// createProfile creates the viewer's profile and returns its person id.
func (h *harness) createProfile(token, name string, age int, location string) int {
	h.t.Helper()
	rr := h.do(http.MethodPost, "/profile", token, map[string]interface{}{
		"name":     name,
		"age":      age,
		"location": location,
	})
	require.Equal(h.t, http.StatusCreated, rr.Code, rr.Body.String())
	data := h.decode(rr)["data"].(map[string]interface{})
	return int(data["id"].(float64))
}

// newMember registers an account with a profile, returning token and
// person id.
func (h *harness) newMember(name, email string, age int) (string, int) {
	h.t.Helper()
	token := h.register(name, email)
	personID := h.createProfile(token, name, age, "Jakarta")
	return token, personID
}

// dataIDs pulls the ids out of a list response in order.
func dataIDs(t *testing.T, body map[string]interface{}) []int {
	t.Helper()
	raw, ok := body["data"].([]interface{})
	require.True(t, ok, "data is not a list: %v", body)
	ids := make([]int, 0, len(raw))
	for _, item := range raw {
		ids = append(ids, int(item.(map[string]interface{})["id"].(float64)))
	}
	return ids
}
