package poll

import (
	"context"
	"time"
)

type Poll struct {
	ID                 int64      `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Slug               string     `json:"slug"`
	CreatorID          int64      `json:"creator_id"`
	CategoryID         *int64     `json:"category_id,omitempty"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	IsActive           bool       `json:"is_active"`
	IsArchived         bool       `json:"is_archived"`
	IsPublic           bool       `json:"is_public"`
	AllowMultipleVotes bool       `json:"allow_multiple_votes"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type Choice struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	Text      string    `json:"text"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows List results. Zero value lists the first page of
// active polls across all categories.
type ListFilter struct {
	CategoryID *int64
	Limit      int
	Offset     int
}

// UpdateInput carries the mutable poll fields; nil pointers leave the
// current value untouched. Choices, when non-nil, replaces the choice set.
type UpdateInput struct {
	Title              *string
	Description        *string
	CategoryID         *int64
	StartDate          *time.Time
	EndDate            *time.Time
	IsActive           *bool
	IsArchived         *bool
	IsPublic           *bool
	AllowMultipleVotes *bool
	Choices            []string
}

type Repository interface {
	Create(ctx context.Context, p *Poll, choices []Choice) (int64, error)
	GetBySlug(ctx context.Context, slug string) (*Poll, []Choice, error)
	List(ctx context.Context, f ListFilter) ([]Poll, error)
	Update(ctx context.Context, id int64, in UpdateInput, choices []Choice) error
	Delete(ctx context.Context, id int64) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	HasVotes(ctx context.Context, pollID int64) (bool, error)
}
