package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/questly/questly-api/internal/apperr"
	"github.com/questly/questly-api/internal/model"
	"github.com/questly/questly-api/internal/store"
)

const (
	minTitleLength       = 3
	maxTitleLength       = 120
	maxDescriptionLength = 2000
	publicListLimit      = 100
)

type ChallengeService struct {
	store store.Store
}

func NewChallengeService(st store.Store) *ChallengeService {
	return &ChallengeService{store: st}
}

// ChallengeInput is both the create body and the partial update body. Nil
// fields keep their default (create) or current value (update).
type ChallengeInput struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Reward       *int    `json:"reward"`
	Public       *bool   `json:"public"`
	Difficulty   *string `json:"difficulty"`
	Category     *string `json:"category"`
	Goal         *int    `json:"goal"`
	ProgressType *string `json:"progressType"`
}

// CreateCustom creates a user-authored challenge.
func (s *ChallengeService) CreateCustom(ctx context.Context, creator string, in ChallengeInput) (model.Challenge, error) {
	c := model.Challenge{
		Creator:      creator,
		IsCustom:     true,
		Difficulty:   model.DifficultyEasy,
		Category:     model.CategoryCustom,
		Goal:         1,
		ProgressType: model.ProgressBoolean,
	}
	if in.Title == nil {
		return model.Challenge{}, apperr.Validationf("title is required")
	}
	if err := applyChallengeInput(&c, in); err != nil {
		return model.Challenge{}, err
	}
	if err := s.store.CreateChallenge(ctx, &c); err != nil {
		return model.Challenge{}, err
	}
	return c, nil
}

func (s *ChallengeService) Update(ctx context.Context, id, requester string, in ChallengeInput) (model.Challenge, error) {
	c, err := s.owned(ctx, id, requester, "update")
	if err != nil {
		return model.Challenge{}, err
	}
	if err := applyChallengeInput(&c, in); err != nil {
		return model.Challenge{}, err
	}
	if err := s.store.UpdateChallenge(ctx, &c); err != nil {
		return model.Challenge{}, notFound(err, "Challenge")
	}
	return c, nil
}

// Delete removes the challenge together with everyone's progress on it.
func (s *ChallengeService) Delete(ctx context.Context, id, requester string) error {
	if _, err := s.owned(ctx, id, requester, "delete"); err != nil {
		return err
	}
	return notFound(s.store.DeleteChallenge(ctx, id), "Challenge")
}

func (s *ChallengeService) owned(ctx context.Context, id, requester, action string) (model.Challenge, error) {
	c, err := s.store.GetChallenge(ctx, id)
	if err != nil {
		return model.Challenge{}, notFound(err, "Challenge")
	}
	if c.Creator != requester {
		return model.Challenge{}, apperr.Forbiddenf("Not authorized to %s this challenge", action)
	}
	return c, nil
}

// CreatedBy lists the challenges userID authored, newest first.
func (s *ChallengeService) CreatedBy(ctx context.Context, userID string) ([]model.Challenge, error) {
	return s.store.ListChallengesByCreator(ctx, userID)
}

func (s *ChallengeService) Public(ctx context.Context) ([]model.Challenge, error) {
	return s.store.ListPublicChallenges(ctx, publicListLimit)
}

// Join starts tracking userID's progress on a challenge. Joining twice
// returns the existing row.
func (s *ChallengeService) Join(ctx context.Context, userID, challengeID string) (model.UserChallenge, error) {
	if _, err := s.accessible(ctx, userID, challengeID); err != nil {
		return model.UserChallenge{}, err
	}
	uc, err := s.store.GetUserChallenge(ctx, userID, challengeID)
	if err == nil {
		return uc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.UserChallenge{}, err
	}
	uc = model.UserChallenge{UserID: userID, ChallengeID: challengeID}
	if err := s.store.SaveUserChallenge(ctx, &uc); err != nil {
		return model.UserChallenge{}, notFound(err, "Challenge")
	}
	return s.reload(ctx, uc)
}

// RecordProgress advances userID on a challenge. amount only applies to
// incremental challenges and defaults to 1. Reaching the goal completes the
// challenge; a completed repeatable challenge starts a new round, a
// completed custom one rejects further progress.
func (s *ChallengeService) RecordProgress(ctx context.Context, userID, challengeID string, amount *int) (model.UserChallenge, error) {
	c, err := s.accessible(ctx, userID, challengeID)
	if err != nil {
		return model.UserChallenge{}, err
	}
	step := 1
	if amount != nil {
		if *amount < 1 {
			return model.UserChallenge{}, apperr.Validationf("amount must be at least 1")
		}
		step = *amount
	}

	uc, err := s.store.GetUserChallenge(ctx, userID, challengeID)
	if errors.Is(err, store.ErrNotFound) {
		uc = model.UserChallenge{UserID: userID, ChallengeID: challengeID}
	} else if err != nil {
		return model.UserChallenge{}, err
	}

	if err := advance(&uc, c, step); err != nil {
		return model.UserChallenge{}, err
	}
	if err := s.store.SaveUserChallenge(ctx, &uc); err != nil {
		return model.UserChallenge{}, notFound(err, "Challenge")
	}
	return s.reload(ctx, uc)
}

func advance(uc *model.UserChallenge, c model.Challenge, step int) error {
	if uc.Completed {
		if !c.Category.Repeatable() {
			return apperr.Conflictf("Challenge already completed")
		}
		uc.Progress = 0
		uc.Completed = false
	}
	goal := c.Goal
	if goal < 1 {
		goal = 1
	}
	switch c.ProgressType {
	case model.ProgressIncremental:
		uc.Progress += step
	case model.ProgressStreak:
		uc.Progress++
	default:
		uc.Progress = goal
	}
	if uc.Progress >= goal {
		uc.Progress = goal
		uc.Completed = true
		uc.Completions++
	}
	return nil
}

func (s *ChallengeService) Progress(ctx context.Context, userID string) ([]model.UserChallenge, error) {
	return s.store.ListUserChallenges(ctx, userID)
}

// accessible loads a challenge userID may take part in: public ones and the
// user's own.
func (s *ChallengeService) accessible(ctx context.Context, userID, challengeID string) (model.Challenge, error) {
	c, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return model.Challenge{}, notFound(err, "Challenge")
	}
	if !c.Public && c.Creator != userID {
		return model.Challenge{}, apperr.Forbiddenf("Challenge is private")
	}
	return c, nil
}

func (s *ChallengeService) reload(ctx context.Context, uc model.UserChallenge) (model.UserChallenge, error) {
	saved, err := s.store.GetUserChallenge(ctx, uc.UserID, uc.ChallengeID)
	if err != nil {
		return model.UserChallenge{}, notFound(err, "Challenge")
	}
	return saved, nil
}

func applyChallengeInput(c *model.Challenge, in ChallengeInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if n := utf8.RuneCountInString(title); n < minTitleLength || n > maxTitleLength {
			return apperr.Validationf("title must be %d-%d characters", minTitleLength, maxTitleLength)
		}
		c.Title = title
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if utf8.RuneCountInString(desc) > maxDescriptionLength {
			return apperr.Validationf("description must be at most %d characters", maxDescriptionLength)
		}
		c.Description = desc
	}
	if in.Reward != nil {
		if *in.Reward < 0 {
			return apperr.Validationf("reward must not be negative")
		}
		c.Reward = *in.Reward
	}
	if in.Public != nil {
		c.Public = *in.Public
	}
	if in.Difficulty != nil {
		d := model.Difficulty(strings.ToLower(strings.TrimSpace(*in.Difficulty)))
		if !d.Valid() {
			return apperr.Validationf("difficulty must be one of easy, medium, hard")
		}
		c.Difficulty = d
	}
	if in.Category != nil {
		cat := model.Category(strings.ToLower(strings.TrimSpace(*in.Category)))
		if !cat.Valid() {
			return apperr.Validationf("category must be one of daily, weekly, monthly, custom")
		}
		c.Category = cat
	}
	if in.Goal != nil {
		if *in.Goal < 1 {
			return apperr.Validationf("goal must be at least 1")
		}
		c.Goal = *in.Goal
	}
	if in.ProgressType != nil {
		pt := model.ProgressType(strings.ToLower(strings.TrimSpace(*in.ProgressType)))
		if !pt.Valid() {
			return apperr.Validationf("progressType must be one of boolean, incremental, streak")
		}
		c.ProgressType = pt
	}
	return nil
}
