package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voting-service/internal/slug"
)

const (
	MinChoices = 2
	MaxChoices = 10
)

var (
	ErrNotFound         = errors.New("poll not found")
	ErrValidation       = errors.New("invalid poll")
	ErrPermissionDenied = errors.New("not allowed to modify this poll")
	ErrEditLocked       = errors.New("poll cannot be edited after voting has started")
)

// Actor identifies who is performing a mutating operation.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

type CreateInput struct {
	Title              string
	Description        string
	CategoryID         *int64
	StartDate          *time.Time
	EndDate            *time.Time
	IsPublic           bool
	AllowMultipleVotes bool
	Choices            []string
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a poll and its choices transactionally. The slug is
// generated once from the title and never changes afterwards.
func (s *Service) Create(ctx context.Context, in CreateInput, creatorID int64) (*Poll, []Choice, error) {
	choices, err := buildChoices(in.Choices)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	sl, err := slug.Generate(ctx, in.Title, s.repo.SlugExists)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	if in.StartDate != nil {
		start = *in.StartDate
	}

	p := &Poll{
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		Slug:               sl,
		CreatorID:          creatorID,
		CategoryID:         in.CategoryID,
		StartDate:          start,
		EndDate:            in.EndDate,
		IsActive:           true,
		IsPublic:           in.IsPublic,
		AllowMultipleVotes: in.AllowMultipleVotes,
	}

	if _, err := s.repo.Create(ctx, p, choices); err != nil {
		return nil, nil, err
	}
	return p, choices, nil
}

func (s *Service) GetBySlug(ctx context.Context, sl string) (*Poll, []Choice, error) {
	return s.repo.GetBySlug(ctx, sl)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Poll, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Update applies in to the poll identified by sl. Only the creator or an
// admin may edit; once any vote exists the poll is locked for everyone but
// admins.
func (s *Service) Update(ctx context.Context, sl string, in UpdateInput, actor Actor) error {
	p, _, err := s.repo.GetBySlug(ctx, sl)
	if err != nil {
		return err
	}

	if p.CreatorID != actor.UserID && !actor.IsAdmin {
		return ErrPermissionDenied
	}

	if !actor.IsAdmin {
		voted, err := s.repo.HasVotes(ctx, p.ID)
		if err != nil {
			return err
		}
		if voted {
			return ErrEditLocked
		}
	}

	var choices []Choice
	if in.Choices != nil {
		choices, err = buildChoices(in.Choices)
		if err != nil {
			return err
		}
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}

	return s.repo.Update(ctx, p.ID, in, choices)
}

// Delete removes the poll, its choices and all its votes. There is no
// soft-delete path.
func (s *Service) Delete(ctx context.Context, sl string, actor Actor) error {
	p, _, err := s.repo.GetBySlug(ctx, sl)
	if err != nil {
		return err
	}

	if p.CreatorID != actor.UserID && !actor.IsAdmin {
		return ErrPermissionDenied
	}

	return s.repo.Delete(ctx, p.ID)
}

func buildChoices(texts []string) ([]Choice, error) {
	if len(texts) < MinChoices || len(texts) > MaxChoices {
		return nil, fmt.Errorf("%w: poll must have between %d and %d choices", ErrValidation, MinChoices, MaxChoices)
	}
	choices := make([]Choice, 0, len(texts))
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: choice text cannot be empty", ErrValidation)
		}
		choices = append(choices, Choice{Text: text, Order: i})
	}
	return choices, nil
}
