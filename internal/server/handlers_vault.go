package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cosmicvault/locker/internal/models"
)

// maxUploadMemory bounds the in-memory part of multipart parsing.
const maxUploadMemory = 32 << 20

// verifyAccountPassword re-checks the form password against the account
// store before any vault route touches the locker.
func (s *Server) verifyAccountPassword(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID := sessionUser(r)
	password := r.PostFormValue("password")

	if password == "" {
		s.writeError(w, http.StatusBadRequest, "Password is required")
		return "", "", false
	}

	if !s.accounts.VerifyCredentials(userID, password) {
		s.writeError(w, http.StatusUnauthorized, "Invalid password")
		return "", "", false
	}

	return userID, password, true
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "Password and file are required")
		return
	}

	userID, password, ok := s.verifyAccountPassword(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Password and file are required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	storedID, err := s.vault.Lock(userID, password, data, header.Filename)
	if err != nil {
		s.requestLogger(r).WithError(err).WithField("user_id", userID).Error("Lock failed")
		s.writeError(w, http.StatusBadRequest, "Failed to lock file")
		return
	}

	s.writeSuccess(w, map[string]interface{}{
		"file_name": storedID,
		"message":   "File locked successfully",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	userID, _, ok := s.verifyAccountPassword(w, r)
	if !ok {
		return
	}

	files, err := s.vault.List(userID)
	if err != nil {
		s.requestLogger(r).WithError(err).Error("List failed")
		s.writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	s.writeSuccess(w, map[string]interface{}{"files": files})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	userID, password, ok := s.verifyAccountPassword(w, r)
	if !ok {
		return
	}

	storedID := r.PostFormValue("file_name")
	if storedID == "" {
		s.writeError(w, http.StatusBadRequest, "Password and file name are required")
		return
	}

	content, err := s.vault.Retrieve(storedID, userID, password)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrDecryptionFailed) {
			s.writeError(w, http.StatusNotFound, "File not found or decryption failed")
			return
		}
		s.requestLogger(r).WithError(err).Error("Retrieve failed")
		s.writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	downloadName := strings.TrimSuffix(filepath.Base(storedID), models.StoredIDSuffix)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	userID, password, ok := s.verifyAccountPassword(w, r)
	if !ok {
		return
	}

	storedID := r.PostFormValue("file_name")
	if storedID == "" {
		s.writeError(w, http.StatusBadRequest, "Password and file name are required")
		return
	}

	if !s.vault.Delete(storedID, userID, password) {
		s.writeError(w, http.StatusBadRequest, "Failed to delete file")
		return
	}

	s.writeSuccess(w, map[string]interface{}{
		"message": fmt.Sprintf("%s moved to recycle bin", storedID),
	})
}

func (s *Server) handleRecycleBin(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	userID, _, ok := s.verifyAccountPassword(w, r)
	if !ok {
		return
	}

	files, err := s.vault.ListRecycleBin(userID)
	if err != nil {
		s.requestLogger(r).WithError(err).Error("Recycle bin listing failed")
		s.writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	s.writeSuccess(w, map[string]interface{}{"files": files})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	userID, password, ok := s.verifyAccountPassword(w, r)
	if !ok {
		return
	}

	storedID := r.PostFormValue("file_name")
	if storedID == "" {
		s.writeError(w, http.StatusBadRequest, "Password and file name are required")
		return
	}

	if !s.vault.Restore(storedID, userID, password) {
		s.writeError(w, http.StatusBadRequest, "Failed to restore file")
		return
	}

	s.writeSuccess(w, map[string]interface{}{
		"message": fmt.Sprintf("%s restored", storedID),
	})
}
