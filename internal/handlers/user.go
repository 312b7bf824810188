package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/openride/rideshare-api/internal/auth"
	"github.com/openride/rideshare-api/internal/middleware"
	"github.com/openride/rideshare-api/internal/models"
	"github.com/openride/rideshare-api/internal/repo"
)

const (
	// MsgMissingFields is sent when a required registration field is absent.
	MsgMissingFields = "Invalid user information, one or more field(s) missing"
	// MsgUsernameTaken is sent on a username/email uniqueness conflict.
	MsgUsernameTaken = "Username already existed"
	// MsgUserNotFound is sent when the referenced user does not exist.
	MsgUserNotFound = "User not found"
	// MsgNotAuthorized is sent when a non-admin acts on another user's record.
	MsgNotAuthorized = "Not authorized"
)

// defaultPageSize is the page size when the size query parameter is absent.
const defaultPageSize = 10

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Repo       *repo.UserRepo
	Tokens     *auth.TokenService
	BcryptCost int

	// Reset rebuilds the database schema and re-seeds the admin account.
	// Wired in by the router; used by the admin-only reset endpoint.
	Reset func(ctx context.Context) error
}

// pageParams parses page and size query parameters with the shared
// defaults (page 0, size 10). Negative or malformed values fall back.
func pageParams(r *http.Request) (page, size int) {
	page, size = 0, defaultPageSize
	if p := r.URL.Query().Get("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil && val >= 0 {
			page = val
		}
	}
	if s := r.URL.Query().Get("size"); s != "" {
		if val, err := strconv.Atoi(s); err == nil && val > 0 {
			size = val
		}
	}
	return page, size
}

// ==========================
// Create User
// ==========================
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONMessage(w, MsgMissingFields, http.StatusBadRequest)
		return
	}

	if input.Username == "" || input.Password == "" || input.Firstname == "" || input.Lastname == "" {
		JSONMessage(w, MsgMissingFields, http.StatusBadRequest)
		return
	}

	existing, err := h.Repo.GetByUsername(r.Context(), input.Username)
	if err != nil {
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if existing != nil {
		JSONMessage(w, MsgUsernameTaken, http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), h.BcryptCost)
	if err != nil {
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	user := &models.User{
		Username:     input.Username,
		PasswordHash: string(hash),
		Firstname:    input.Firstname,
		Lastname:     input.Lastname,
		Email:        input.Email,
		Phone:        input.Phone,
		// Admin is never granted at registration.
		Admin: false,
	}

	id, err := h.Repo.Create(r.Context(), user)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			JSONMessage(w, MsgUsernameTaken, http.StatusConflict)
			return
		}
		slog.Error("create user failed", "error", err)
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	user.ID = id

	token, err := h.Tokens.Issue(user)
	if err != nil {
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	pub := user.Public()
	pub.Authenticated = true
	JSONResponse(w, map[string]interface{}{
		"token":   token,
		"user":    pub,
		"message": "Successfully Created User",
	}, http.StatusOK)
}

// ==========================
// Get User (public projection)
// ==========================
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONMessage(w, MsgUserNotFound, http.StatusNotFound)
		return
	}

	user, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if user == nil {
		JSONMessage(w, MsgUserNotFound, http.StatusNotFound)
		return
	}

	JSONResponse(w, user.Public(), http.StatusOK)
}

// ==========================
// List Users (admin only)
// ==========================
// has_more is approximated by "page came back full": a final page whose
// count exactly equals size still reports true.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	users, err := h.Repo.List(r.Context(), page, size)
	if err != nil {
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	JSONResponse(w, map[string]interface{}{
		"users":    users,
		"has_more": len(users) == size,
	}, http.StatusOK)
}

// ==========================
// Update User (self or admin)
// ==========================
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		JSONMessage(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONMessage(w, MsgUserNotFound, http.StatusNotFound)
		return
	}

	if !identity.Admin && identity.ID != id {
		JSONMessage(w, MsgNotAuthorized, http.StatusForbidden)
		return
	}

	target, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if target == nil {
		JSONMessage(w, MsgUserNotFound, http.StatusNotFound)
		return
	}

	var input struct {
		Username  *string `json:"username"`
		Password  *string `json:"password"`
		Firstname *string `json:"firstname"`
		Lastname  *string `json:"lastname"`
		Email     *string `json:"email"`
		Phone     *string `json:"phone"`
		Admin     *bool   `json:"admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONMessage(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	// Only admins may change the admin flag.
	if input.Admin != nil && !identity.Admin {
		JSONMessage(w, MsgNotAuthorized, http.StatusForbidden)
		return
	}

	upd := repo.UserUpdate{
		Username:  input.Username,
		Firstname: input.Firstname,
		Lastname:  input.Lastname,
		Email:     input.Email,
		Phone:     input.Phone,
		Admin:     input.Admin,
	}

	if input.Password != nil && *input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), h.BcryptCost)
		if err != nil {
			JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
		s := string(hash)
		upd.PasswordHash = &s
	}

	if err := h.Repo.Update(r.Context(), id, upd); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			JSONMessage(w, MsgUsernameTaken, http.StatusConflict)
			return
		}
		slog.Error("update user failed", "error", err, "id", id)
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	JSONMessage(w, "Successfully updated user", http.StatusOK)
}

// ==========================
// Delete User (self or admin, cascades to trips)
// ==========================
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		JSONMessage(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONMessage(w, MsgUserNotFound, http.StatusNotFound)
		return
	}

	if !identity.Admin && identity.ID != id {
		JSONMessage(w, MsgNotAuthorized, http.StatusForbidden)
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		slog.Error("delete user failed", "error", err, "id", id)
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	JSONMessage(w, "User is deleted", http.StatusOK)
}

// ==========================
// Reset Database (admin only)
// ==========================
func (h *UserHandler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if h.Reset == nil {
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if err := h.Reset(r.Context()); err != nil {
		slog.Error("database reset failed", "error", err)
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	JSONMessage(w, "Database reset", http.StatusOK)
}
