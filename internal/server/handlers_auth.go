package server

import (
	"errors"
	"net/http"

	"github.com/cosmicvault/locker/internal/accounts"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	userID := r.PostFormValue("user_id")
	user := accounts.User{
		Password:         r.PostFormValue("password"),
		SecurityQuestion: r.PostFormValue("security_question"),
		SecurityAnswer:   r.PostFormValue("security_answer"),
	}

	if err := s.accounts.Register(userID, user); err != nil {
		if errors.Is(err, accounts.ErrUserExists) {
			s.writeError(w, http.StatusBadRequest, "User ID already exists")
			return
		}
		s.writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	s.writeSuccess(w, map[string]interface{}{"message": "Signup successful"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	if !s.loginLim.allow(clientKey(r)) {
		s.writeError(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	userID := r.PostFormValue("user_id")
	password := r.PostFormValue("password")
	if userID == "" || password == "" {
		s.writeError(w, http.StatusBadRequest, "User ID and password are required")
		return
	}

	if !s.accounts.VerifyCredentials(userID, password) {
		s.requestLogger(r).WithField("user_id", userID).Warn("Failed login attempt")
		s.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, expires, err := s.sessions.Issue(userID)
	if err != nil {
		s.requestLogger(r).WithError(err).Error("Failed to issue session")
		s.writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	s.writeSuccess(w, map[string]interface{}{
		"token":   token,
		"expires": expires.Unix(),
	})
}

// handleForgotPassword runs the two-step recovery flow: first request
// returns the security question, second verifies the answer and clears
// the way to a reset.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	step := r.PostFormValue("step")
	if step == "" {
		step = "user_id"
	}
	userID := r.PostFormValue("user_id")

	switch step {
	case "user_id":
		if userID == "" {
			s.writeError(w, http.StatusBadRequest, "User ID is required")
			return
		}
		question, err := s.accounts.SecurityQuestion(userID)
		if err != nil {
			s.writeError(w, http.StatusNotFound, "User ID not found")
			return
		}
		s.writeSuccess(w, map[string]interface{}{
			"step":              "security_question",
			"security_question": question,
			"user_id":           userID,
		})

	case "security_question":
		answer := r.PostFormValue("security_answer")
		if answer == "" {
			s.writeError(w, http.StatusBadRequest, "Security answer is required")
			return
		}
		if err := s.accounts.VerifySecurityAnswer(userID, answer); err != nil {
			s.writeError(w, http.StatusUnauthorized, "Incorrect security answer")
			return
		}
		s.writeSuccess(w, map[string]interface{}{
			"step":    "reset_password",
			"user_id": userID,
		})

	default:
		s.writeError(w, http.StatusBadRequest, "Invalid step")
	}
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if !s.requirePOST(w, r) {
		return
	}

	userID := r.PostFormValue("user_id")
	newPassword := r.PostFormValue("new_password")
	confirm := r.PostFormValue("confirm_password")

	if userID == "" || newPassword == "" || confirm == "" {
		s.writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if newPassword != confirm {
		s.writeError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	if err := s.accounts.ResetPassword(userID, newPassword); err != nil {
		s.writeError(w, http.StatusNotFound, "User not found")
		return
	}

	s.writeSuccess(w, map[string]interface{}{"message": "Password reset successful"})
}
