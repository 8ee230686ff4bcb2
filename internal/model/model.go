package model

import "time"

type User struct {
	ID            string    `json:"_id" bson:"_id"`
	FirstName     string    `json:"firstName" bson:"firstName"`
	LastName      string    `json:"lastName" bson:"lastName"`
	Email         string    `json:"email" bson:"email"`
	PasswordHash  string    `json:"-" bson:"password"`
	Location      string    `json:"location" bson:"location"`
	Occupation    string    `json:"occupation" bson:"occupation"`
	PicturePath   string    `json:"picturePath" bson:"picturePath"`
	Friends       []string  `json:"friends" bson:"friends"`
	SavedPosts    []string  `json:"savedPosts" bson:"savedPosts"`
	ViewedProfile int       `json:"viewedProfile" bson:"viewedProfile"`
	Impressions   int       `json:"impressions" bson:"impressions"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the public subset returned by friend and search listings.
type UserSummary struct {
	ID          string `json:"_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Occupation  string `json:"occupation"`
	Location    string `json:"location"`
	PicturePath string `json:"picturePath"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Occupation:  u.Occupation,
		Location:    u.Location,
		PicturePath: u.PicturePath,
	}
}

// UserUpdate carries a partial profile update. Nil fields are left unchanged.
type UserUpdate struct {
	FirstName   *string
	LastName    *string
	Location    *string
	Occupation  *string
	PicturePath *string
}

func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Location == nil && u.Occupation == nil && u.PicturePath == nil
}

type Post struct {
	ID              string          `json:"_id" bson:"_id"`
	UserID          string          `json:"userId" bson:"userId"`
	FirstName       string          `json:"firstName" bson:"firstName"`
	LastName        string          `json:"lastName" bson:"lastName"`
	Location        string          `json:"location" bson:"location"`
	Description     string          `json:"description" bson:"description"`
	UserPicturePath string          `json:"userPicturePath" bson:"userPicturePath"`
	PicturePath     string          `json:"picturePath" bson:"picturePath"`
	Likes           map[string]bool `json:"likes" bson:"likes"`
	Comments        []Comment       `json:"comments" bson:"comments"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// LikedBy reports whether userID is in the like set.
func (p Post) LikedBy(userID string) bool {
	return p.Likes[userID]
}

// Comment finds an embedded comment by id.
func (p Post) Comment(id string) (Comment, bool) {
	for _, c := range p.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return Comment{}, false
}

type Comment struct {
	ID              string    `json:"_id" bson:"_id"`
	UserID          string    `json:"userId" bson:"userId"`
	UserFirstName   string    `json:"userFirstName" bson:"userFirstName"`
	UserLastName    string    `json:"userLastName" bson:"userLastName"`
	UserPicturePath string    `json:"userPicturePath" bson:"userPicturePath"`
	Text            string    `json:"text" bson:"text"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
}

// PostPage is one page of a paginated post listing.
type PostPage struct {
	Posts       []Post `json:"posts"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalPosts  int    `json:"totalPosts"`
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Category string

const (
	CategoryDaily   Category = "daily"
	CategoryWeekly  Category = "weekly"
	CategoryMonthly Category = "monthly"
	CategoryCustom  Category = "custom"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryDaily, CategoryWeekly, CategoryMonthly, CategoryCustom:
		return true
	}
	return false
}

// Repeatable reports whether a completed challenge of this category can be
// started again.
func (c Category) Repeatable() bool {
	return c == CategoryDaily || c == CategoryWeekly || c == CategoryMonthly
}

type ProgressType string

const (
	ProgressBoolean     ProgressType = "boolean"
	ProgressIncremental ProgressType = "incremental"
	ProgressStreak      ProgressType = "streak"
)

func (p ProgressType) Valid() bool {
	switch p {
	case ProgressBoolean, ProgressIncremental, ProgressStreak:
		return true
	}
	return false
}

type Challenge struct {
	ID           string       `json:"_id" bson:"_id"`
	Title        string       `json:"title" bson:"title"`
	Description  string       `json:"description" bson:"description"`
	Reward       int          `json:"reward" bson:"reward"`
	Creator      string       `json:"creator" bson:"creator"`
	IsCustom     bool         `json:"isCustom" bson:"isCustom"`
	Public       bool         `json:"public" bson:"public"`
	Difficulty   Difficulty   `json:"difficulty" bson:"difficulty"`
	Category     Category     `json:"category" bson:"category"`
	Goal         int          `json:"goal" bson:"goal"`
	ProgressType ProgressType `json:"progressType" bson:"progressType"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
}

type UserChallenge struct {
	ID          string    `json:"_id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	ChallengeID string    `json:"challengeId" bson:"challengeId"`
	Progress    int       `json:"progress" bson:"progress"`
	Completed   bool      `json:"completed" bson:"completed"`
	Completions int       `json:"completions" bson:"completions"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
