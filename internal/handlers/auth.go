package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/openride/rideshare-api/internal/auth"
	"github.com/openride/rideshare-api/internal/metrics"
	"github.com/openride/rideshare-api/internal/repo"
)

// MsgInvalidCredentials is sent for both unknown usernames and wrong
// passwords so responses cannot be used to enumerate accounts.
const MsgInvalidCredentials = "Invalid username or password"

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Users  *repo.UserRepo
	Tokens *auth.TokenService
}

// ==========================
// Login
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONMessage(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.Users.GetByUsername(r.Context(), input.Username)
	if err != nil {
		slog.Error("login: lookup failed", "error", err)
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if user == nil {
		metrics.IncLogins("failure")
		JSONMessage(w, MsgInvalidCredentials, http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		metrics.IncLogins("failure")
		JSONMessage(w, MsgInvalidCredentials, http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		slog.Error("login: issue token failed", "error", err)
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	metrics.IncLogins("success")
	pub := user.Public()
	pub.Authenticated = true
	JSONResponse(w, map[string]interface{}{
		"user":    pub,
		"token":   token,
		"message": "Successfully logged in",
	}, http.StatusOK)
}
