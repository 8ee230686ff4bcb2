package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/questly/questly-api/internal/apperr"
	"github.com/questly/questly-api/internal/auth"
	"github.com/questly/questly-api/internal/config"
	"github.com/questly/questly-api/internal/media"
	"github.com/questly/questly-api/internal/metrics"
	"github.com/questly/questly-api/internal/rate"
	"github.com/questly/questly-api/internal/service"
	"github.com/questly/questly-api/internal/store"

	_ "github.com/questly/questly-api/docs" // swagger docs
)

// maxFormBytes leaves room for text fields next to a full-size image.
const maxFormBytes = media.MaxUploadBytes + 1<<20

const maxJSONBytes = 1 << 20

var errBodyTooLarge = apperr.TooLargef("request body must be at most %d bytes", maxJSONBytes)

type Server struct {
	store   store.Store
	svc     *service.Services
	auth    *auth.Service
	limiter rate.Limiter
	images  *service.Images
	cfg     config.Config
	log     *logrus.Logger
	handler http.Handler
}

func NewServer(st store.Store, authSvc *auth.Service, limiter rate.Limiter, images *service.Images, cfg config.Config, log *logrus.Logger) (*Server, error) {
	if images == nil || images.Store == nil {
		return nil, errors.New("media store is required")
	}
	s := &Server{
		store:   st,
		svc:     service.New(st, images, authSvc, log),
		auth:    authSvc,
		limiter: limiter,
		images:  images,
		cfg:     cfg,
		log:     log,
	}
	s.handler = s.logRequests(s.cors(s.routes()))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/test", s.handleTest).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	if local, ok := s.images.Store.(*media.LocalStore); ok {
		r.PathPrefix(media.AssetsPrefix).Handler(http.StripPrefix(media.AssetsPrefix, noDirListing(http.FileServer(http.Dir(local.Dir())))))
	}

	accounts := r.PathPrefix("/auth").Subrouter()
	accounts.Use(s.limitWrites)
	accounts.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	accounts.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	posts := r.PathPrefix("/posts").Subrouter()
	posts.Use(s.authenticate, s.limitWrites)
	posts.HandleFunc("", s.handleCreatePost).Methods(http.MethodPost)
	posts.HandleFunc("", s.handleFeed).Methods(http.MethodGet)
	posts.HandleFunc("/fix/urls", s.handleFixImageURLs).Methods(http.MethodPatch)
	posts.HandleFunc("/{userId}/posts", s.handleUserPosts).Methods(http.MethodGet)
	posts.HandleFunc("/{id}", s.handleGetPost).Methods(http.MethodGet)
	posts.HandleFunc("/{id}", s.handleDeletePost).Methods(http.MethodDelete)
	posts.HandleFunc("/{id}/like", s.handleToggleLike).Methods(http.MethodPatch)
	posts.HandleFunc("/{id}/save", s.handleToggleSaved).Methods(http.MethodPatch)
	posts.HandleFunc("/{id}/comment", s.handleAddComment).Methods(http.MethodPatch)
	posts.HandleFunc("/{id}/comments/{commentId}", s.handleDeleteComment).Methods(http.MethodDelete)

	users := r.PathPrefix("/users").Subrouter()
	users.Use(s.authenticate, s.limitWrites)
	users.HandleFunc("/search/users", s.handleSearchUsers).Methods(http.MethodGet)
	users.HandleFunc("/{id}", s.handleGetUser).Methods(http.MethodGet)
	users.HandleFunc("/{id}", s.handleUpdateUser).Methods(http.MethodPatch)
	users.HandleFunc("/{id}/friends", s.handleGetFriends).Methods(http.MethodGet)
	users.HandleFunc("/{id}/{friendId}", s.handleToggleFriend).Methods(http.MethodPatch)

	challenges := r.PathPrefix("/api/challenges").Subrouter()
	challenges.Use(s.authenticate, s.limitWrites)
	challenges.HandleFunc("/custom", s.handleCreateChallenge).Methods(http.MethodPost)
	challenges.HandleFunc("/user-created", s.handleUserCreatedChallenges).Methods(http.MethodGet)
	challenges.HandleFunc("/public", s.handlePublicChallenges).Methods(http.MethodGet)
	challenges.HandleFunc("/progress", s.handleMyProgress).Methods(http.MethodGet)
	challenges.HandleFunc("/{id}/join", s.handleJoinChallenge).Methods(http.MethodPost)
	challenges.HandleFunc("/{id}/progress", s.handleRecordProgress).Methods(http.MethodPatch)
	challenges.HandleFunc("/{id}", s.handleUpdateChallenge).Methods(http.MethodPatch)
	challenges.HandleFunc("/{id}", s.handleDeleteChallenge).Methods(http.MethodDelete)

	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	if len(s.cfg.CORSOrigins) == 0 {
		return next
	}
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
	)(next)
}

// requestInfo lets inner handlers report the caller to the request logger.
type requestInfo struct {
	userID string
}

type requestInfoKey struct{}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &requestInfo{}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

		fields := logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      clientIP(r),
		}
		if info.userID != "" {
			fields["user_id"] = info.userID
		}
		entry := s.log.WithFields(fields)
		switch {
		case rec.status >= 500:
			entry.Error("request")
		case rec.status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	})
}

// authenticate rejects requests without a valid bearer token and stores the
// verified identity in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer := auth.BearerToken(r.Header.Get("Authorization"))
		if bearer == "" {
			writeError(w, http.StatusUnauthorized, errors.New("Access Denied"))
			return
		}
		verified, err := s.auth.Authenticate(r.Context(), bearer)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			info.userID = verified.UserID
		}
		next.ServeHTTP(w, r.WithContext(auth.WithVerified(r.Context(), verified)))
	})
}

// limitWrites applies the per-caller write budget to non-GET requests.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		key := auth.UserID(r.Context())
		if key == "" {
			key = "ip:" + clientIP(r)
		}
		if ok, retry := s.limiter.Allow(key); !ok {
			writeRateLimit(w, retry)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Reports whether the server can reach its store.
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	map[string]string
//	@Router			/api/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, db, code := "OK", "connected", http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		s.log.WithError(err).Warn("store ping failed")
		status, db, code = "DEGRADED", "disconnected", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  db,
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Server is working!",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": "Endpoint not found",
		"path":  r.URL.RequestURI(),
	})
}

// writeServiceError maps a service error to its status. Internal causes are
// logged and never sent to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		s.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	if kind == apperr.PayloadTooLarge {
		label := "File too large"
		if errors.Is(err, errBodyTooLarge) {
			label = "Request body too large"
		}
		writeJSON(w, kind.HTTPStatus(), map[string]any{
			"error":   label,
			"message": apperr.Message(err),
		})
		return
	}
	writeJSON(w, kind.HTTPStatus(), map[string]any{"error": apperr.Message(err)})
}

// assetBase is the URL prefix this request sees uploaded images under.
func assetBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + media.AssetsPrefix
}

// readForm decodes a JSON or multipart body into dest and returns the
// optional "picture" upload. Multipart text fields are mapped onto dest's
// JSON field names.
func readForm(w http.ResponseWriter, r *http.Request, dest any) (*media.Upload, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := readJSON(w, r, dest); err != nil {
			return nil, err
		}
		return nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, media.ErrTooLarge
		}
		return nil, apperr.Validationf("invalid multipart form")
	}
	fields := make(map[string]string, len(r.MultipartForm.Value))
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	raw, _ := json.Marshal(fields)
	if err := json.Unmarshal(raw, dest); err != nil {
		return nil, apperr.Validationf("invalid form fields")
	}

	file, header, err := r.FormFile("picture")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validationf("invalid picture upload")
	}
	defer file.Close()
	if header.Size > media.MaxUploadBytes {
		return nil, media.ErrTooLarge
	}
	upload, err := media.ReadUpload(file, header.Filename)
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

// readJSON decodes a JSON body of at most maxJSONBytes. An empty body leaves
// dest untouched.
func readJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBytes)
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return apperr.Validationf("invalid JSON body: %v", err)
	}
	return nil
}

// sameUser enforces that an id supplied by the client, when present, is the
// authenticated caller.
func sameUser(r *http.Request, claimed string) error {
	if claimed != "" && claimed != auth.UserID(r.Context()) {
		return apperr.Forbiddenf("userId does not match the authenticated user")
	}
	return nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			notFound(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	seconds := int(retry.Seconds() + 0.5)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": seconds,
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return def
}
