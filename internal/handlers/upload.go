package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/google/uuid"
)

// Uploads stages multipart files on local disk so the media service can
// stream them to the object store.
type Uploads struct {
	Dir      string
	MaxBytes int64
}

// staged tracks files written for one request.
type staged struct {
	paths []string
}

// cleanup removes staged files the media service did not consume, along with
// the multipart spill files of r.
func (s *staged) cleanup(r *http.Request) {
	for _, p := range s.paths {
		_ = os.Remove(p)
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func (u Uploads) parse(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, u.MaxBytes)
	if err := r.ParseMultipartForm(u.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("Upload too large",
				apperr.Detail{Message: fmt.Sprintf("request body exceeds %d bytes", u.MaxBytes)})
		}
		return apperr.Validation("Invalid multipart form", apperr.Detail{Message: err.Error()})
	}
	return nil
}

// save writes the file in field to Dir under a random name and returns its
// path. A missing field yields "" and no error.
func (u Uploads) save(r *http.Request, st *staged, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Validation("Invalid file", apperr.Detail{Field: field, Message: err.Error()})
	}
	defer file.Close()

	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", apperr.Internal(err)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	path := filepath.Join(u.Dir, uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", apperr.Internal(err)
	}
	st.paths = append(st.paths, path)

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		return "", apperr.Internal(err)
	}
	if err := dst.Close(); err != nil {
		return "", apperr.Internal(err)
	}
	return path, nil
}
