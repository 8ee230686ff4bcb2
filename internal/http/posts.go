package httpapp

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/questly/questly-api/internal/auth"
	"github.com/questly/questly-api/internal/service"
)

type createPostRequest struct {
	UserID      string `json:"userId"`
	Description string `json:"description"`
	PicturePath string `json:"picturePath"`
}

type userRefRequest struct {
	UserID string `json:"userId"`
}

type commentRequest struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// handleCreatePost godoc
//
//	@Summary		Create post
//	@Description	Publishes a post as the authenticated user. Accepts JSON or multipart/form-data with an optional "picture" file (max 5MB).
//	@Tags			Posts
//	@Accept			json,mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			description	formData	string	false	"Post text"
//	@Param			picture		formData	file	false	"Image file"
//	@Success		201	{object}	model.Post
//	@Failure		400	{object}	map[string]string
//	@Failure		401	{object}	map[string]string
//	@Failure		403	{object}	map[string]string
//	@Failure		413	{object}	map[string]string
//	@Router			/posts [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	upload, err := readForm(w, r, &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := sameUser(r, req.UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	post, err := s.svc.Posts.Create(r.Context(), service.CreatePostInput{
		AuthorID:    auth.UserID(r.Context()),
		Description: req.Description,
		Image:       upload,
		Base:        assetBase(r),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// handleFeed godoc
//
//	@Summary		Feed
//	@Description	Lists all posts newest first.
//	@Tags			Posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query		int	false	"Page number (default 1)"
//	@Param			limit	query		int	false	"Page size (default 10, max 100)"
//	@Success		200		{object}	model.PostPage
//	@Failure		401		{object}	map[string]string
//	@Router			/posts [get]
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.svc.Posts.Feed(r.Context(), parseIntDefault(q.Get("page"), 1), parseIntDefault(q.Get("limit"), 0), assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleUserPosts godoc
//
//	@Summary	User posts
//	@Tags		Posts
//	@Produce	json
//	@Security	BearerAuth
//	@Param		userId	path		string	true	"Author id"
//	@Param		page	query		int		false	"Page number (default 1)"
//	@Param		limit	query		int		false	"Page size (default 10, max 100)"
//	@Success	200		{object}	model.PostPage
//	@Router		/posts/{userId}/posts [get]
func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.svc.Posts.UserPosts(r.Context(), mux.Vars(r)["userId"],
		parseIntDefault(q.Get("page"), 1), parseIntDefault(q.Get("limit"), 0), assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleGetPost godoc
//
//	@Summary	Get post
//	@Tags		Posts
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Post id"
//	@Success	200	{object}	model.Post
//	@Failure	404	{object}	map[string]string
//	@Router		/posts/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.svc.Posts.Get(r.Context(), mux.Vars(r)["id"], assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleToggleLike godoc
//
//	@Summary		Like or unlike
//	@Description	Flips the authenticated user's like on a post.
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Post id"
//	@Success		200	{object}	model.Post
//	@Failure		403	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/posts/{id}/like [patch]
func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	var req userRefRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := sameUser(r, req.UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	post, err := s.svc.Posts.ToggleLike(r.Context(), mux.Vars(r)["id"], auth.UserID(r.Context()), assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleToggleSaved godoc
//
//	@Summary	Save or unsave
//	@Tags		Posts
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Post id"
//	@Success	200	{object}	map[string][]string
//	@Failure	404	{object}	map[string]string
//	@Router		/posts/{id}/save [patch]
func (s *Server) handleToggleSaved(w http.ResponseWriter, r *http.Request) {
	var req userRefRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := sameUser(r, req.UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	saved, err := s.svc.Posts.ToggleSaved(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"savedPosts": saved})
}

// handleAddComment godoc
//
//	@Summary	Add comment
//	@Tags		Posts
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string			true	"Post id"
//	@Param		body	body		commentRequest	true	"Comment"
//	@Success	200		{object}	model.Post
//	@Failure	400		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/posts/{id}/comment [patch]
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := sameUser(r, req.UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	post, err := s.svc.Posts.AddComment(r.Context(), mux.Vars(r)["id"], auth.UserID(r.Context()), req.Text, assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleDeleteComment godoc
//
//	@Summary		Delete comment
//	@Description	Comment authors and post owners may delete a comment.
//	@Tags			Posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"Post id"
//	@Param			commentId	path		string	true	"Comment id"
//	@Success		200			{object}	model.Post
//	@Failure		403			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Router			/posts/{id}/comments/{commentId} [delete]
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	post, err := s.svc.Posts.DeleteComment(r.Context(), vars["id"], vars["commentId"], auth.UserID(r.Context()), assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleDeletePost godoc
//
//	@Summary	Delete post
//	@Tags		Posts
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Post id"
//	@Success	200	{object}	map[string]string
//	@Failure	403	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Router		/posts/{id} [delete]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Posts.Delete(r.Context(), mux.Vars(r)["id"], auth.UserID(r.Context())); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Post deleted successfully"})
}

// handleFixImageURLs godoc
//
//	@Summary		Repair image URLs
//	@Description	Rewrites legacy relative image references to absolute URLs. Safe to run repeatedly.
//	@Tags			Posts
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]any
//	@Router			/posts/fix/urls [patch]
func (s *Server) handleFixImageURLs(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Posts.RepairImageURLs(r.Context(), assetBase(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Image URLs fixed successfully",
		"scanned":    result.Scanned,
		"fixedCount": result.Fixed,
	})
}
