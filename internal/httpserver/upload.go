package httpserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/tilqural/levels/internal/auth"
	"github.com/tilqural/levels/internal/store"
)

const maxAvatarBytes = 1_000_000

var (
	imageTypes        = regexp.MustCompile(`jpeg|jpg|png|gif`)
	errAvatarTooLarge = errors.New("File too large")
	errAvatarType     = errors.New("Error: Incorrect media type. Images only!")
)

// handleUpdateProfile accepts multipart {username?, email?, avatar?}.
// Empty fields keep their current value.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = errAvatarTooLarge
		}
		writeMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	upd := store.ProfileUpdate{
		Username: auth.NormalizeUsername(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
	}
	if upd.Username != "" {
		if err := auth.ValidateUsername(upd.Username); err != nil {
			writeMsg(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if file, hdr, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		path, err := s.saveAvatar(file, hdr)
		if errors.Is(err, errAvatarTooLarge) || errors.Is(err, errAvatarType) {
			writeMsg(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("user", me.ID).Msg("save avatar")
			writeMsg(w, http.StatusInternalServerError, "An error occurred while updating the profile")
			return
		}
		upd.Avatar = path
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		writeMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.store.UpdateProfile(r.Context(), me.ID, upd)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, store.ErrConflict):
		writeMsg(w, http.StatusConflict, "Username taken")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("user", me.ID).Msg("update profile")
		writeMsg(w, http.StatusInternalServerError, "An error occurred while updating the profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"username": u.Username,
		"email":    u.Email,
		"avatar":   u.Avatar,
	})
}

// saveAvatar checks size, extension and declared MIME type, then writes
// the file as <uploadDir>/avatar-<unixms><ext>. It returns the public
// path "uploads/<name>".
func (s *Server) saveAvatar(file multipart.File, hdr *multipart.FileHeader) (string, error) {
	if hdr.Size > maxAvatarBytes {
		return "", errAvatarTooLarge
	}
	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if !imageTypes.MatchString(ext) || !imageTypes.MatchString(hdr.Header.Get("Content-Type")) {
		return "", errAvatarType
	}
	if err := s.ensureUploadDir(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("avatar-%d%s", s.now().UnixMilli(), ext)
	out, err := os.Create(filepath.Join(s.uploadDir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return "uploads/" + name, nil
}
