package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

// HashPassword returns a bcrypt hash suitable for the password_hash setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyCredentials checks username and password against the operator account.
func (m *Manager) VerifyCredentials(username, password string) bool {
	if m.username == "" || len(m.hash) == 0 {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword(m.hash, []byte(password)) == nil
}

// LoginHandler handles operator authentication
func (m *Manager) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if !m.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
		return
	}
	if !m.VerifyCredentials(req.Username, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := m.GenerateToken(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{
		Token:     token,
		Username:  req.Username,
		ExpiresIn: int64(m.ttl.Seconds()),
	})
}
