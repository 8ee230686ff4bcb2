package httpapp

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/questly/questly-api/internal/auth"
	"github.com/questly/questly-api/internal/service"
)

// challengeRequest accepts the creator and isCustom fields clients echo
// back; creator must match the caller and isCustom is always set by the
// server.
type challengeRequest struct {
	service.ChallengeInput
	Creator  string `json:"creator"`
	IsCustom *bool  `json:"isCustom"`
}

type progressRequest struct {
	Amount *int `json:"amount"`
}

// handleCreateChallenge godoc
//
//	@Summary	Create custom challenge
//	@Tags		Challenges
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		service.ChallengeInput	true	"Challenge"
//	@Success	201		{object}	model.Challenge
//	@Failure	400		{object}	map[string]string
//	@Failure	403		{object}	map[string]string
//	@Router		/api/challenges/custom [post]
func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := sameUser(r, req.Creator); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	challenge, err := s.svc.Challenges.CreateCustom(r.Context(), auth.UserID(r.Context()), req.ChallengeInput)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, challenge)
}

// handleUserCreatedChallenges godoc
//
//	@Summary	My challenges
//	@Tags		Challenges
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	model.Challenge
//	@Router		/api/challenges/user-created [get]
func (s *Server) handleUserCreatedChallenges(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Challenges.CreatedBy(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handlePublicChallenges godoc
//
//	@Summary	Public challenges
//	@Tags		Challenges
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	model.Challenge
//	@Router		/api/challenges/public [get]
func (s *Server) handlePublicChallenges(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Challenges.Public(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleMyProgress godoc
//
//	@Summary	My progress
//	@Tags		Challenges
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	model.UserChallenge
//	@Router		/api/challenges/progress [get]
func (s *Server) handleMyProgress(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Challenges.Progress(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleJoinChallenge godoc
//
//	@Summary		Join challenge
//	@Description	Starts tracking progress. Joining twice returns the existing row.
//	@Tags			Challenges
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Challenge id"
//	@Success		200	{object}	model.UserChallenge
//	@Failure		403	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/api/challenges/{id}/join [post]
func (s *Server) handleJoinChallenge(w http.ResponseWriter, r *http.Request) {
	uc, err := s.svc.Challenges.Join(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uc)
}

// handleRecordProgress godoc
//
//	@Summary		Record progress
//	@Description	Advances progress by one, or by amount for incremental challenges.
//	@Tags			Challenges
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Challenge id"
//	@Param			body	body		progressRequest	false	"Amount"
//	@Success		200		{object}	model.UserChallenge
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/api/challenges/{id}/progress [patch]
func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	uc, err := s.svc.Challenges.RecordProgress(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uc)
}

// handleUpdateChallenge godoc
//
//	@Summary	Update challenge
//	@Tags		Challenges
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"Challenge id"
//	@Param		body	body		service.ChallengeInput	true	"Fields to change"
//	@Success	200		{object}	model.Challenge
//	@Failure	400		{object}	map[string]string
//	@Failure	403		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/challenges/{id} [patch]
func (s *Server) handleUpdateChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := sameUser(r, req.Creator); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	challenge, err := s.svc.Challenges.Update(r.Context(), mux.Vars(r)["id"], auth.UserID(r.Context()), req.ChallengeInput)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// handleDeleteChallenge godoc
//
//	@Summary	Delete challenge
//	@Tags		Challenges
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Challenge id"
//	@Success	200	{object}	map[string]string
//	@Failure	403	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Router		/api/challenges/{id} [delete]
func (s *Server) handleDeleteChallenge(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Challenges.Delete(r.Context(), mux.Vars(r)["id"], auth.UserID(r.Context())); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Challenge deleted successfully"})
}
