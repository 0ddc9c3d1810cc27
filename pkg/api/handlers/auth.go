package handlers

import (
	"errors"
	"net/http"

	"github.com/chronolens/chronolens/pkg/api/auth"
	"github.com/chronolens/chronolens/pkg/catalog"
)

// AuthHandler handles registration, login and token refresh.
type AuthHandler struct {
	store      *catalog.Store
	jwtService *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store *catalog.Store, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		store:      store,
		jwtService: jwtService,
	}
}

// CredentialsRequest is the request body for POST /register and POST /login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResponse is the response body for POST /register.
type RegisterResponse struct {
	ID string `json:"id"`
}

// RefreshRequest is the request body for POST /refresh. The access token must
// be the one the refresh token was minted with.
type RefreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	id, err := h.store.AddUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, catalog.ErrDuplicateUser) {
			Forbidden(w, "Username is already taken")
			return
		}
		InternalServerError(w, "Registration failed")
		return
	}

	WriteJSONOK(w, RegisterResponse{ID: id})
}

// Login handles POST /login. Unknown users and wrong passwords are both
// rejected with 403 so the response does not reveal which usernames exist.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	user, err := h.store.ValidateCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidCredentials) {
			Forbidden(w, "Invalid username or password")
			return
		}
		InternalServerError(w, "Authentication failed")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(user.ID)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, tokenPair)
}

// Refresh handles POST /refresh. Undecodable tokens are a 400; an expired
// refresh token or a pair that was not minted together is a 403.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.AccessToken == "" || req.RefreshToken == "" {
		BadRequest(w, "Access and refresh tokens are required")
		return
	}

	tokenPair, err := h.jwtService.Refresh(req.AccessToken, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			BadRequest(w, "Tokens could not be decoded")
		case errors.Is(err, auth.ErrExpiredToken):
			Forbidden(w, "Refresh token has expired")
		case errors.Is(err, auth.ErrTokenMismatch):
			Forbidden(w, "Refresh token does not match the access token")
		default:
			InternalServerError(w, "Failed to refresh token")
		}
		return
	}

	WriteJSONOK(w, tokenPair)
}
