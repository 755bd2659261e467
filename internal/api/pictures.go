package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/amaralkaff/tinder-clone/internal/store"
)

// Original images are capped at 5MB (jpeg/png/gif); each upload also
// gets a jpeg thumbnail for list views.
const (
	maxPictureBytes = 5 << 20
	thumbMaxPx      = 480
)

var pictureExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

func (a *API) picturesDir() string {
	return filepath.Join(a.uploadRoot, "pictures")
}

// POST /profile/pictures  (multipart form, field name: "image")
func (a *API) uploadPictureHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		person, ok := a.viewerPerson(w, r)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxPictureBytes+(1<<20))
		if err := r.ParseMultipartForm(maxPictureBytes); err != nil {
			respondErrors(w, map[string][]string{"image": {"image may not be greater than 5MB"}})
			return
		}
		f, header, err := r.FormFile("image")
		if err != nil {
			respondErrors(w, map[string][]string{"image": {"image is required"}})
			return
		}
		defer f.Close()
		if header.Size > maxPictureBytes {
			respondErrors(w, map[string][]string{"image": {"image may not be greater than 5MB"}})
			return
		}

		data, err := io.ReadAll(f)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Could not read upload")
			return
		}

		// Sniff MIME from the first bytes; the client-sent header is
		// not trusted.
		sniffLen := len(data)
		if sniffLen > 512 {
			sniffLen = 512
		}
		ctype := http.DetectContentType(data[:sniffLen])
		ext, allowed := pictureExtensions[ctype]
		if !allowed {
			respondErrors(w, map[string][]string{"image": {"image must be a file of type: jpeg, png, gif"}})
			return
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			respondErrors(w, map[string][]string{"image": {"image file is corrupt or not an image"}})
			return
		}

		order := 0
		if raw := r.FormValue("order"); raw != "" {
			order, err = strconv.Atoi(raw)
			if err != nil || order < 0 {
				respondErrors(w, map[string][]string{"order": {"order must be a non-negative integer"}})
				return
			}
		} else {
			order, err = a.store.NextPictureOrder(r.Context(), person.ID)
			if err != nil {
				log.Println("Error computing picture order:", err)
				respondError(w, http.StatusInternalServerError, "Could not store picture")
				return
			}
		}

		filename := fmt.Sprintf("%d_%d%s", person.ID, time.Now().UnixNano(), ext)
		if err := a.savePictureFiles(filename, data, img); err != nil {
			log.Println("Error saving picture files:", err)
			respondError(w, http.StatusInternalServerError, "Could not store picture")
			return
		}

		picture, err := a.store.AddPicture(r.Context(), person.ID, "/storage/pictures/"+filename, order)
		if err != nil {
			// The files are orphaned if this fails; remove them.
			a.removePictureFiles(filename)
			log.Println("Error saving picture row:", err)
			respondError(w, http.StatusInternalServerError, "Could not store picture")
			return
		}

		respondMessage(w, http.StatusCreated, "Picture uploaded successfully", picture)
	})
}

// savePictureFiles writes the original upload plus a jpeg thumbnail,
// using tmp+rename so a crash never leaves a half-written file behind.
func (a *API) savePictureFiles(filename string, data []byte, img image.Image) error {
	dir := a.picturesDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, filename)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return err
	}

	thumb := resize.Thumbnail(thumbMaxPx, thumbMaxPx, img, resize.Lanczos3)
	thumbDst := filepath.Join(dir, thumbName(filename))
	thumbTmp := thumbDst + ".tmp"
	out, err := os.Create(thumbTmp)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		out.Close()
		return err
	}
	out.Close()
	return os.Rename(thumbTmp, thumbDst)
}

func (a *API) removePictureFiles(filename string) {
	// Only basenames, so a mangled image_url cannot point outside the
	// upload directory.
	base := filepath.Base(filename)
	_ = os.Remove(filepath.Join(a.picturesDir(), base))
	_ = os.Remove(filepath.Join(a.picturesDir(), thumbName(base)))
}

func thumbName(filename string) string {
	return "thumb_" + strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpg"
}

// DELETE /profile/pictures/{id}
func (a *API) deletePictureHandler() http.HandlerFunc {
	return a.authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "profile" || parts[1] != "pictures" {
			respondError(w, http.StatusNotFound, "Picture not found.")
			return
		}
		pictureID, err := strconv.Atoi(parts[2])
		if err != nil {
			respondError(w, http.StatusNotFound, "Picture not found.")
			return
		}
		person, ok := a.viewerPerson(w, r)
		if !ok {
			return
		}

		picture, err := a.store.DeletePicture(r.Context(), person.ID, pictureID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Picture not found.")
				return
			}
			log.Println("Error deleting picture:", err)
			respondError(w, http.StatusInternalServerError, "Could not delete picture")
			return
		}

		a.removePictureFiles(filepath.Base(picture.ImageURL))
		respondMessage(w, http.StatusOK, "Picture deleted successfully", nil)
	})
}
