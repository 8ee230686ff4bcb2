package httpapp

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/service"
)

type updateUserRequest struct {
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Location   *string `json:"location"`
	Occupation *string `json:"occupation"`
	// Ignored; pictures change only through an uploaded file.
	PicturePath *string `json:"picturePath"`
}

// handleGetUser godoc
//
//	@Summary	Get user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User id"
//	@Success	200	{object}	model.User
//	@Failure	404	{object}	map[string]string
//	@Router		/users/{id} [get]
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.Get(r.Context(), mux.Vars(r)["id"], assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleGetFriends godoc
//
//	@Summary	List friends
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User id"
//	@Success	200	{array}		model.UserSummary
//	@Failure	404	{object}	map[string]string
//	@Router		/users/{id}/friends [get]
func (s *Server) handleGetFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.svc.Users.Friends(r.Context(), mux.Vars(r)["id"], assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

// handleToggleFriend godoc
//
//	@Summary		Add or remove friend
//	@Description	Toggles a mutual friendship. The path user must be the authenticated user.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"User id"
//	@Param			friendId	path		string	true	"Friend id"
//	@Success		200			{array}		model.UserSummary
//	@Failure		400			{object}	map[string]string
//	@Failure		403			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Router			/users/{id}/{friendId} [patch]
func (s *Server) handleToggleFriend(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := sameUser(r, vars["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	friends, err := s.svc.Users.ToggleFriend(r.Context(), vars["id"], vars["friendId"], assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

// handleUpdateUser godoc
//
//	@Summary		Update profile
//	@Description	Partial profile update. Accepts JSON or multipart/form-data with an optional "picture" file (max 5MB).
//	@Tags			Users
//	@Accept			json,mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"User id"
//	@Param			picture	formData	file	false	"Profile picture"
//	@Success		200		{object}	model.User
//	@Failure		400		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Failure		413		{object}	map[string]string
//	@Router			/users/{id} [patch]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := sameUser(r, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req updateUserRequest
	upload, err := readForm(w, r, &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	user, err := s.svc.Users.Update(r.Context(), id, service.UpdateUserInput{
		Fields: model.UserUpdate{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Location:   req.Location,
			Occupation: req.Occupation,
		},
		Picture: upload,
		Base:    assetBase(r),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleSearchUsers godoc
//
//	@Summary	Search users
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		query	query	string	true	"Name fragment"
//	@Success	200		{array}	model.UserSummary
//	@Router		/users/search/users [get]
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.Search(r.Context(), r.URL.Query().Get("query"), assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
