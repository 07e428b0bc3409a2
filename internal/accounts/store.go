package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cosmicvault/locker/internal/events"
)

// Account credentials are stored and compared in the clear. Strong
// login hashing is out of scope here; the vault's confidentiality
// never depends on this store.

// Errors
var (
	ErrUserExists       = errors.New("user ID already exists")
	ErrUserNotFound     = errors.New("user ID not found")
	ErrWrongCredentials = errors.New("invalid credentials")
	ErrWrongAnswer      = errors.New("incorrect security answer")
)

// User holds one account record.
type User struct {
	Password         string `json:"password"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

// Store is a JSON-file account store.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *events.Logger
}

// NewStore creates an account store backed by a JSON file.
func NewStore(path string, logger *events.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create accounts directory: %w", err)
	}

	return &Store{
		path:   path,
		logger: logger.WithField("component", "account_store"),
	}, nil
}

// Register creates a new account. All fields are required.
func (s *Store) Register(userID string, user User) error {
	if userID == "" || user.Password == "" || user.SecurityQuestion == "" || user.SecurityAnswer == "" {
		return errors.New("all fields are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.load()
	if _, exists := users[userID]; exists {
		return ErrUserExists
	}

	users[userID] = user
	if err := s.save(users); err != nil {
		return err
	}

	s.logger.WithField("user_id", userID).Info("Registered user")
	return nil
}

// VerifyCredentials checks a user ID and password pair.
func (s *Store) VerifyCredentials(userID, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.load()[userID]
	return exists && user.Password == password
}

// SecurityQuestion returns the user's recovery question.
func (s *Store) SecurityQuestion(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.load()[userID]
	if !exists {
		return "", ErrUserNotFound
	}
	return user.SecurityQuestion, nil
}

// VerifySecurityAnswer checks the recovery answer.
func (s *Store) VerifySecurityAnswer(userID, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.load()[userID]
	if !exists {
		return ErrUserNotFound
	}
	if answer == "" || user.SecurityAnswer != answer {
		return ErrWrongAnswer
	}
	return nil
}

// ResetPassword replaces a user's password.
func (s *Store) ResetPassword(userID, newPassword string) error {
	if newPassword == "" {
		return errors.New("new password is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.load()
	user, exists := users[userID]
	if !exists {
		return ErrUserNotFound
	}

	user.Password = newPassword
	users[userID] = user

	if err := s.save(users); err != nil {
		return err
	}

	s.logger.WithField("user_id", userID).Info("Reset password")
	return nil
}

// load reads the user document, degrading to an empty map when the file
// is missing or unreadable.
func (s *Store) load() map[string]User {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]User{}
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to read users file")
		return map[string]User{}
	}

	var users map[string]User
	if err := json.Unmarshal(data, &users); err != nil {
		s.logger.WithError(err).Error("Failed to decode users file")
		return map[string]User{}
	}
	if users == nil {
		users = map[string]User{}
	}

	return users
}

// save rewrites the user document atomically.
func (s *Store) save(users map[string]User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename users file: %w", err)
	}

	return nil
}
