package httpapp

import (
	"net/http"

	"github.com/questly/questly-api/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister godoc
//
//	@Summary		Register
//	@Description	Creates an account. Accepts JSON or multipart/form-data with an optional "picture" file (max 5MB).
//	@Tags			Auth
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			body	body		service.RegisterInput	true	"Account"
//	@Success		201		{object}	model.User
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Failure		413		{object}	map[string]string
//	@Router			/auth/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	upload, err := readForm(w, r, &in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	in.Picture = upload
	in.Base = assetBase(r)
	user, err := s.svc.Accounts.Register(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleLogin godoc
//
//	@Summary		Login
//	@Description	Exchanges credentials for a bearer token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	service.LoginResult
//	@Failure		400		{object}	map[string]string
//	@Router			/auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	result, err := s.svc.Accounts.Login(r.Context(), req.Email, req.Password, assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
