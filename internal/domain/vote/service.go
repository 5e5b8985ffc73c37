package vote

import (
	"context"
	"errors"
	"time"

	"voting-service/internal/domain/poll"
)

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrChoiceNotInPoll = errors.New("choice does not belong to poll")
	ErrPollClosed      = errors.New("poll is no longer active")
	ErrPollExpired     = errors.New("poll has ended")
	ErrLoginRequired   = errors.New("login required to vote in this private poll")
	ErrAlreadyVoted    = errors.New("already voted in this poll")
)

// PollSource is the slice of the poll catalog the admission path needs.
type PollSource interface {
	GetBySlug(ctx context.Context, slug string) (*poll.Poll, []poll.Choice, error)
}

// Metrics receives one callback per accepted vote. Rejections are never
// counted.
type Metrics interface {
	VoteAccepted()
}

type ChoiceResult struct {
	ChoiceID   int64   `json:"choice_id"`
	Text       string  `json:"text"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type Service struct {
	polls   PollSource
	votes   Repository
	metrics Metrics
}

func NewService(polls PollSource, votes Repository, metrics Metrics) *Service {
	return &Service{polls: polls, votes: votes, metrics: metrics}
}

// CastVote validates the request against the poll lifecycle and duplicate
// rules, then persists the vote.
//
// Duplicate prevention is asymmetric on purpose: authenticated voters on
// single-vote polls are guarded by a storage uniqueness constraint (the
// insert itself reports ErrAlreadyVoted, so concurrent submissions race
// safely), while anonymous voters are checked by a prior read keyed on
// (poll, IP) and can slip through under concurrency.
func (s *Service) CastVote(ctx context.Context, pollSlug string, choiceID int64, voter Voter) (*Vote, error) {
	p, choices, err := s.polls.GetBySlug(ctx, pollSlug)
	if err != nil {
		if errors.Is(err, poll.ErrNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, err
	}

	if !choiceBelongs(choices, choiceID) {
		return nil, ErrChoiceNotInPoll
	}

	if !p.IsActive || p.IsArchived {
		return nil, ErrPollClosed
	}

	if p.EndDate != nil && p.EndDate.Before(time.Now()) {
		return nil, ErrPollExpired
	}

	if voter.Anonymous() {
		if !p.IsPublic {
			return nil, ErrLoginRequired
		}
		if !p.AllowMultipleVotes {
			voted, err := s.votes.HasAnonymousVote(ctx, p.ID, voter.IP)
			if err != nil {
				return nil, err
			}
			if voted {
				return nil, ErrAlreadyVoted
			}
		}
	}

	v := &Vote{
		PollID:    p.ID,
		ChoiceID:  choiceID,
		UserID:    voter.UserID,
		IPAddress: voter.IP,
		UserAgent: voter.UserAgent,
	}

	if err := s.votes.Create(ctx, v, !p.AllowMultipleVotes); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.VoteAccepted()
	}
	return v, nil
}

// Tally returns every choice of the poll in display order with its vote
// count and share of the total. It is a pure read.
func (s *Service) Tally(ctx context.Context, pollSlug string) ([]ChoiceResult, int64, error) {
	p, choices, err := s.polls.GetBySlug(ctx, pollSlug)
	if err != nil {
		if errors.Is(err, poll.ErrNotFound) {
			return nil, 0, ErrPollNotFound
		}
		return nil, 0, err
	}

	counts, err := s.votes.CountByPoll(ctx, p.ID)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	results := make([]ChoiceResult, 0, len(choices))
	for _, c := range choices {
		n := counts[c.ID]
		var pct float64
		if total > 0 {
			pct = float64(n) * 100.0 / float64(total)
		}
		results = append(results, ChoiceResult{
			ChoiceID:   c.ID,
			Text:       c.Text,
			Votes:      n,
			Percentage: pct,
		})
	}

	return results, total, nil
}

func choiceBelongs(choices []poll.Choice, choiceID int64) bool {
	for _, c := range choices {
		if c.ID == choiceID {
			return true
		}
	}
	return false
}
