package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/domain/users"
	"github.com/Togather-Foundation/gatherings/internal/validation"
)

type UsersHandler struct {
	Service *users.Service
	JWT     *auth.JWTManager
	Env     string
	BaseURL string
}

func NewUsersHandler(service *users.Service, jwt *auth.JWTManager, env string, baseURL string) *UsersHandler {
	return &UsersHandler{Service: service, JWT: jwt, Env: env, BaseURL: baseURL}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input users.RegisterInput
	if err := decodeJSON(r, &input, false); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	user, err := h.Service.Register(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	w.Header().Set("Location", strings.TrimRight(h.BaseURL, "/")+"/api/v1/users/"+url.PathEscape(user.Username))
	writeJSON(w, http.StatusCreated, toProfile(user))
}

// Login exchanges a username and password for a bearer token.
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, &validation.Error{
			Message: "Must include \"username\" and \"password\".",
			Fields:  missingCredentials(req),
		}, h.Env)
		return
	}

	user, err := h.Service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	issuedAt := time.Now().UTC()
	token, err := h.JWT.Generate(user.ID, user.Username)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: issuedAt.Add(h.JWT.Expiry()).Truncate(time.Second),
		User:      toProfile(user),
	})
}

func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := identity(r)
	if err := auth.RequireIdentity(caller); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	user, err := h.Service.Get(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(user))
}

func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var input users.ProfileInput
	if err := decodeJSON(r, &input, true); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	user, err := h.Service.UpdateProfile(r.Context(), identity(r), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(user))
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.GetByUsername(r.Context(), pathParam(r, "username"))
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toUser(user))
}

func missingCredentials(req loginRequest) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(req.Username) == "" {
		fields["username"] = "this field is required"
	}
	if req.Password == "" {
		fields["password"] = "this field is required"
	}
	return fields
}
