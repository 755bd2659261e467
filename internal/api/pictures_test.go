package api

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngBytes renders a small solid image so uploads carry real pixels.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uploadPicture sends a multipart POST to /profile/pictures.
func uploadPicture(t *testing.T, h *harness, token string, file []byte, order string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	if order != "" {
		require.NoError(t, mw.WriteField("order", order))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile/pictures", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.mux.ServeHTTP(rr, req)
	return rr
}

func TestPicturesSuite(t *testing.T) {
	t.Run("Upload", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)

		rr := uploadPicture(t, h, token, pngBytes(t), "1")
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		body := h.decode(rr)
		assert.Equal(t, "Picture uploaded successfully", body["message"])
		data := body["data"].(map[string]interface{})
		url := data["image_url"].(string)
		assert.True(t, strings.HasPrefix(url, "/storage/pictures/"), url)
		assert.Equal(t, float64(1), data["order"])

		// Original and thumbnail both land on disk.
		base := filepath.Base(url)
		original := filepath.Join(h.uploadDir, "pictures", base)
		_, err := os.Stat(original)
		assert.NoError(t, err)
		thumb := filepath.Join(h.uploadDir, "pictures",
			"thumb_"+strings.TrimSuffix(base, filepath.Ext(base))+".jpg")
		_, err = os.Stat(thumb)
		assert.NoError(t, err)

		// And the original is served back under /storage/.
		get := h.do(http.MethodGet, url, "", nil)
		assert.Equal(t, http.StatusOK, get.Code)
	})

	t.Run("OrderDefaultsToNextSlot", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)

		rr := uploadPicture(t, h, token, pngBytes(t), "")
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		data := h.decode(rr)["data"].(map[string]interface{})
		assert.Equal(t, float64(1), data["order"])

		rr = uploadPicture(t, h, token, pngBytes(t), "")
		require.Equal(t, http.StatusCreated, rr.Code)
		data = h.decode(rr)["data"].(map[string]interface{})
		assert.Equal(t, float64(2), data["order"])
	})

	t.Run("RejectsNonImage", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)

		rr := uploadPicture(t, h, token, []byte("definitely not pixels"), "")
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
		errs := h.decode(rr)["errors"].(map[string]interface{})
		assert.Contains(t, errs, "image")
	})

	t.Run("RejectsMissingFile", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)

		rr := uploadPicture(t, h, token, nil, "")
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		errs := h.decode(rr)["errors"].(map[string]interface{})
		msgs := errs["image"].([]interface{})
		assert.Contains(t, msgs, "image is required")
	})

	t.Run("RequiresProfile", func(t *testing.T) {
		h := newHarness(t)
		token := h.register("Alice", "alice@example.com")
		rr := uploadPicture(t, h, token, pngBytes(t), "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Delete", func(t *testing.T) {
		h := newHarness(t)
		token, _ := h.newMember("Alice", "alice@example.com", 27)

		rr := uploadPicture(t, h, token, pngBytes(t), "")
		require.Equal(t, http.StatusCreated, rr.Code)
		data := h.decode(rr)["data"].(map[string]interface{})
		pictureID := int(data["id"].(float64))
		base := filepath.Base(data["image_url"].(string))

		rr = h.do(http.MethodDelete, fmt.Sprintf("/profile/pictures/%d", pictureID), token, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "Picture deleted successfully", h.decode(rr)["message"])

		_, err := os.Stat(filepath.Join(h.uploadDir, "pictures", base))
		assert.True(t, os.IsNotExist(err), "original should be removed")

		// Second delete finds nothing.
		rr = h.do(http.MethodDelete, fmt.Sprintf("/profile/pictures/%d", pictureID), token, nil)
		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Picture not found.", h.decode(rr)["message"])
	})

	t.Run("DeleteSomeoneElsesPicture", func(t *testing.T) {
		h := newHarness(t)
		aliceToken, _ := h.newMember("Alice", "alice@example.com", 27)
		bobToken, _ := h.newMember("Bob", "bob@example.com", 30)

		rr := uploadPicture(t, h, aliceToken, pngBytes(t), "")
		require.Equal(t, http.StatusCreated, rr.Code)
		data := h.decode(rr)["data"].(map[string]interface{})
		pictureID := int(data["id"].(float64))

		rr = h.do(http.MethodDelete, fmt.Sprintf("/profile/pictures/%d", pictureID), bobToken, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
