// Package client provides a Go client for the Questly API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/questly/questly-api/internal/model"
)

// Client is a Questly API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	TokenExp   time.Time
	UserID     string
}

// New creates a new Questly client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Account is the registration payload.
type Account struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Location   string `json:"location,omitempty"`
	Occupation string `json:"occupation,omitempty"`
}

// Image is an optional file attached to multipart requests.
type Image struct {
	Name string
	Data []byte
}

// APIError is returned for any non-success response.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

var ErrAlreadyRegistered = errors.New("already registered")

// Register creates a new account on the server.
func (c *Client) Register(acct Account, picture *Image) (*model.User, error) {
	var user model.User
	var err error
	if picture != nil {
		err = c.doMultipart(http.MethodPost, "/auth/register", "register", accountFields(acct), picture, http.StatusCreated, &user)
	} else {
		err = c.do(http.MethodPost, "/auth/register", "register", acct, http.StatusCreated, &user)
	}
	if StatusOf(err) == http.StatusConflict {
		return nil, ErrAlreadyRegistered
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a bearer token and keeps it on the client.
func (c *Client) Login(email, password string) (*model.User, error) {
	var result struct {
		Token     string     `json:"token"`
		ExpiresAt time.Time  `json:"expiresAt"`
		User      model.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(http.MethodPost, "/auth/login", "login", body, http.StatusOK, &result); err != nil {
		return nil, err
	}
	c.Token = result.Token
	c.TokenExp = result.ExpiresAt
	c.UserID = result.User.ID
	return &result.User, nil
}

// RegisterAndLogin registers (if needed) and logs in.
func (c *Client) RegisterAndLogin(acct Account) (*model.User, error) {
	if _, err := c.Register(acct, nil); err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return nil, fmt.Errorf("register: %w", err)
	}
	return c.Login(acct.Email, acct.Password)
}

// IsAuthenticated returns true if the client has a valid token.
func (c *Client) IsAuthenticated() bool {
	return c.Token != "" && time.Now().Before(c.TokenExp)
}

// CreatePost publishes a post, optionally with an image.
func (c *Client) CreatePost(description string, picture *Image) (*model.Post, error) {
	var post model.Post
	var err error
	if picture != nil {
		err = c.doMultipart(http.MethodPost, "/posts", "create post", map[string]string{"description": description}, picture, http.StatusCreated, &post)
	} else {
		err = c.do(http.MethodPost, "/posts", "create post", map[string]string{"description": description}, http.StatusCreated, &post)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Feed fetches one page of the feed. A zero limit uses the server default.
func (c *Client) Feed(page, limit int) (*model.PostPage, error) {
	return c.postPage("/posts", page, limit)
}

// UserPosts fetches one page of an author's posts.
func (c *Client) UserPosts(userID string, page, limit int) (*model.PostPage, error) {
	return c.postPage("/posts/"+url.PathEscape(userID)+"/posts", page, limit)
}

func (c *Client) postPage(path string, page, limit int) (*model.PostPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var result model.PostPage
	if err := c.do(http.MethodGet, path, "get posts", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(id string) (*model.Post, error) {
	return c.postCall(http.MethodGet, "/posts/"+url.PathEscape(id), "get post", nil)
}

// ToggleLike likes or unlikes a post.
func (c *Client) ToggleLike(postID string) (*model.Post, error) {
	return c.postCall(http.MethodPatch, "/posts/"+url.PathEscape(postID)+"/like", "like", nil)
}

// AddComment appends a comment to a post.
func (c *Client) AddComment(postID, text string) (*model.Post, error) {
	return c.postCall(http.MethodPatch, "/posts/"+url.PathEscape(postID)+"/comment", "comment", map[string]string{"text": text})
}

// DeleteComment removes a comment from a post.
func (c *Client) DeleteComment(postID, commentID string) (*model.Post, error) {
	return c.postCall(http.MethodDelete, "/posts/"+url.PathEscape(postID)+"/comments/"+url.PathEscape(commentID), "delete comment", nil)
}

func (c *Client) postCall(method, path, op string, body any) (*model.Post, error) {
	var post model.Post
	if err := c.do(method, path, op, body, http.StatusOK, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost deletes a post you own.
func (c *Client) DeletePost(id string) error {
	return c.do(http.MethodDelete, "/posts/"+url.PathEscape(id), "delete post", nil, http.StatusOK, nil)
}

// ToggleSaved bookmarks or un-bookmarks a post and returns the saved list.
func (c *Client) ToggleSaved(postID string) ([]string, error) {
	var result struct {
		SavedPosts []string `json:"savedPosts"`
	}
	if err := c.do(http.MethodPatch, "/posts/"+url.PathEscape(postID)+"/save", "save post", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result.SavedPosts, nil
}

// FixImageURLs runs the image URL repair and returns how many posts changed.
func (c *Client) FixImageURLs() (int, error) {
	var result struct {
		FixedCount int `json:"fixedCount"`
	}
	if err := c.do(http.MethodPatch, "/posts/fix/urls", "fix urls", nil, http.StatusOK, &result); err != nil {
		return 0, err
	}
	return result.FixedCount, nil
}

// GetUser fetches a profile.
func (c *Client) GetUser(id string) (*model.User, error) {
	var user model.User
	if err := c.do(http.MethodGet, "/users/"+url.PathEscape(id), "get user", nil, http.StatusOK, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies a partial profile update for the logged in user.
func (c *Client) UpdateProfile(fields map[string]string, picture *Image) (*model.User, error) {
	var user model.User
	path := "/users/" + url.PathEscape(c.UserID)
	var err error
	if picture != nil {
		err = c.doMultipart(http.MethodPatch, path, "update profile", fields, picture, http.StatusOK, &user)
	} else {
		err = c.do(http.MethodPatch, path, "update profile", fields, http.StatusOK, &user)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Friends lists a user's friends.
func (c *Client) Friends(userID string) ([]model.UserSummary, error) {
	var friends []model.UserSummary
	if err := c.do(http.MethodGet, "/users/"+url.PathEscape(userID)+"/friends", "get friends", nil, http.StatusOK, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// ToggleFriend adds or removes friendID and returns the updated friend list.
func (c *Client) ToggleFriend(friendID string) ([]model.UserSummary, error) {
	var friends []model.UserSummary
	path := "/users/" + url.PathEscape(c.UserID) + "/" + url.PathEscape(friendID)
	if err := c.do(http.MethodPatch, path, "toggle friend", nil, http.StatusOK, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// SearchUsers finds users by name.
func (c *Client) SearchUsers(query string) ([]model.UserSummary, error) {
	var users []model.UserSummary
	if err := c.do(http.MethodGet, "/users/search/users?query="+url.QueryEscape(query), "search users", nil, http.StatusOK, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateChallenge creates a custom challenge. body uses the API field names.
func (c *Client) CreateChallenge(body map[string]any) (*model.Challenge, error) {
	var challenge model.Challenge
	if err := c.do(http.MethodPost, "/api/challenges/custom", "create challenge", body, http.StatusCreated, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// PublicChallenges lists public challenges.
func (c *Client) PublicChallenges() ([]model.Challenge, error) {
	var list []model.Challenge
	if err := c.do(http.MethodGet, "/api/challenges/public", "public challenges", nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// JoinChallenge starts tracking progress on a challenge.
func (c *Client) JoinChallenge(id string) (*model.UserChallenge, error) {
	var uc model.UserChallenge
	if err := c.do(http.MethodPost, "/api/challenges/"+url.PathEscape(id)+"/join", "join challenge", nil, http.StatusOK, &uc); err != nil {
		return nil, err
	}
	return &uc, nil
}

// RecordProgress advances progress by amount (0 sends no amount).
func (c *Client) RecordProgress(id string, amount int) (*model.UserChallenge, error) {
	var body any
	if amount > 0 {
		body = map[string]int{"amount": amount}
	}
	var uc model.UserChallenge
	if err := c.do(http.MethodPatch, "/api/challenges/"+url.PathEscape(id)+"/progress", "record progress", body, http.StatusOK, &uc); err != nil {
		return nil, err
	}
	return &uc, nil
}

// doRequest performs an authenticated HTTP request.
func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) do(method, path, op string, body any, want int, out any) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	return decode(resp, op, want, out)
}

func (c *Client) doMultipart(method, path, op string, fields map[string]string, picture *Image, want int, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("picture", picture.Name)
	if err != nil {
		return err
	}
	if _, err := part.Write(picture.Data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	return decode(resp, op, want, out)
}

func decode(resp *http.Response, op string, want int, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
			if payload.Message != "" {
				msg += ": " + payload.Message
			}
		}
		return &APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func accountFields(a Account) map[string]string {
	return map[string]string{
		"firstName":  a.FirstName,
		"lastName":   a.LastName,
		"email":      a.Email,
		"password":   a.Password,
		"location":   a.Location,
		"occupation": a.Occupation,
	}
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

// NewTestHelper creates a new test helper for the given base URL.
func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers name@example.test (if needed) and
// returns a logged in client.
func (h *TestHelper) CreateAuthenticatedClient(name string) (*Client, *model.User, error) {
	c := New(h.BaseURL)
	user, err := c.RegisterAndLogin(Account{
		FirstName: name,
		LastName:  "Tester",
		Email:     strings.ToLower(name) + "@example.test",
		Password:  "password123",
	})
	if err != nil {
		return nil, nil, err
	}
	return c, user, nil
}

// GetToken creates an account (if needed) and returns an access token.
func (h *TestHelper) GetToken(name string) (string, error) {
	c, _, err := h.CreateAuthenticatedClient(name)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}
