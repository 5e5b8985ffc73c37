package vote

import (
	"context"
	"time"
)

type Vote struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	ChoiceID  int64     `json:"choice_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"-"`
	VotedAt   time.Time `json:"voted_at"`
}

// Voter is the per-request identity context. A nil UserID means the vote is
// anonymous.
type Voter struct {
	UserID    *int64
	IP        string
	UserAgent string
}

func (v Voter) Anonymous() bool {
	return v.UserID == nil
}

type Repository interface {
	// Create inserts the vote. When dedup is true the storage layer enforces
	// uniqueness on (poll, user) for authenticated voters and reports a
	// violation as ErrAlreadyVoted.
	Create(ctx context.Context, v *Vote, dedup bool) error
	HasAnonymousVote(ctx context.Context, pollID int64, ip string) (bool, error)
	CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, error)
}
