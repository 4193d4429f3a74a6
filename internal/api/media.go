package api

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/Formula-SAE/bugreport/internal/access"
	"github.com/gorilla/mux"
)

const maxUploadSize = 5 << 20

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, validationError(fieldErrors{"file": {"The uploaded file is too large."}}))
			return
		}
		writeError(w, validationError(fieldErrors{"file": {"No file was submitted."}}))
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, err)
		return
	}
	head = head[:n]

	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		writeError(w, validationError(fieldErrors{"file": {"Upload a valid image. The file you uploaded was either not an image or a corrupted image."}}))
		return
	}

	ref, err := a.media.Save(kind, header.Filename, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		log.Printf("[upload] Failed to store %s upload: %v", kind, err)
		writeError(w, err)
		return
	}

	log.Printf("[upload] User %d stored %s", access.UserFrom(r.Context()).ID, ref)
	writeJSON(w, http.StatusCreated, map[string]string{"url": ref})
}

func (a *API) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	blob, err := a.media.Open(r.URL.Path)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, errNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	defer blob.Close()

	if ct := mime.TypeByExtension(path.Ext(r.URL.Path)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, blob); err != nil {
		log.Printf("[media] Failed to send %s: %v", r.URL.Path, err)
	}
}
