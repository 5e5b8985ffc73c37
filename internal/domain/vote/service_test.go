package vote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"voting-service/internal/domain/poll"
)

type memoryPolls struct {
	polls   map[string]*poll.Poll
	choices map[string][]poll.Choice
}

func newMemoryPolls() *memoryPolls {
	return &memoryPolls{
		polls:   make(map[string]*poll.Poll),
		choices: make(map[string][]poll.Choice),
	}
}

func (m *memoryPolls) add(p *poll.Poll, choices []poll.Choice) {
	m.polls[p.Slug] = p
	m.choices[p.Slug] = choices
}

func (m *memoryPolls) GetBySlug(ctx context.Context, slug string) (*poll.Poll, []poll.Choice, error) {
	p, ok := m.polls[slug]
	if !ok {
		return nil, nil, poll.ErrNotFound
	}
	copyPoll := *p
	choices := make([]poll.Choice, len(m.choices[slug]))
	copy(choices, m.choices[slug])
	return &copyPoll, choices, nil
}

type voteKey struct {
	pollID int64
	userID int64
}

// memoryVotes mirrors the storage contract: the dedup flag together with a
// non-null user is enforced atomically inside Create, while anonymous
// duplicate detection is only available through the separate read.
type memoryVotes struct {
	mu     sync.Mutex
	votes  []Vote
	seen   map[voteKey]bool
	nextID int64
}

func newMemoryVotes() *memoryVotes {
	return &memoryVotes{seen: make(map[voteKey]bool), nextID: 1}
}

func (m *memoryVotes) Create(ctx context.Context, v *Vote, dedup bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dedup && v.UserID != nil {
		k := voteKey{pollID: v.PollID, userID: *v.UserID}
		if m.seen[k] {
			return ErrAlreadyVoted
		}
		m.seen[k] = true
	}
	v.ID = m.nextID
	m.nextID++
	v.VotedAt = time.Now()
	m.votes = append(m.votes, *v)
	return nil
}

func (m *memoryVotes) HasAnonymousVote(ctx context.Context, pollID int64, ip string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.votes {
		if v.PollID == pollID && v.UserID == nil && v.IPAddress == ip {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryVotes) CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make(map[int64]int64)
	for _, v := range m.votes {
		if v.PollID == pollID {
			res[v.ChoiceID]++
		}
	}
	return res, nil
}

func (m *memoryVotes) count(pollID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.votes {
		if v.PollID == pollID {
			n++
		}
	}
	return n
}

type countingMetrics struct {
	mu sync.Mutex
	n  int
}

func (c *countingMetrics) VoteAccepted() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingMetrics) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func seedPoll(polls *memoryPolls, slug string, mutate func(*poll.Poll)) (*poll.Poll, []poll.Choice) {
	p := &poll.Poll{
		ID:        int64(len(polls.polls) + 1),
		Title:     slug,
		Slug:      slug,
		CreatorID: 1,
		StartDate: time.Now().Add(-time.Hour),
		IsActive:  true,
		IsPublic:  true,
	}
	if mutate != nil {
		mutate(p)
	}
	choices := []poll.Choice{
		{ID: p.ID*100 + 1, PollID: p.ID, Text: "yes", Order: 0},
		{ID: p.ID*100 + 2, PollID: p.ID, Text: "no", Order: 1},
		{ID: p.ID*100 + 3, PollID: p.ID, Text: "maybe", Order: 2},
	}
	polls.add(p, choices)
	return p, choices
}

func authedVoter(userID int64, ip string) Voter {
	return Voter{UserID: &userID, IP: ip, UserAgent: "test-agent"}
}

func anonVoter(ip string) Voter {
	return Voter{IP: ip, UserAgent: "test-agent"}
}

func TestCastVoteRejectionLadder(t *testing.T) {
	polls := newMemoryPolls()
	votes := newMemoryVotes()
	svc := NewService(polls, votes, nil)
	ctx := context.Background()

	_, open := seedPoll(polls, "open", nil)
	seedPoll(polls, "inactive", func(p *poll.Poll) { p.IsActive = false })
	seedPoll(polls, "archived", func(p *poll.Poll) { p.IsArchived = true })
	seedPoll(polls, "expired", func(p *poll.Poll) {
		past := time.Now().Add(-time.Hour)
		p.EndDate = &past
	})
	seedPoll(polls, "private", func(p *poll.Poll) { p.IsPublic = false })

	cases := []struct {
		name     string
		slug     string
		choiceID int64
		voter    Voter
		want     error
	}{
		{"missing poll", "nope", open[0].ID, authedVoter(7, "10.0.0.1"), ErrPollNotFound},
		{"foreign choice", "open", 999999, authedVoter(7, "10.0.0.1"), ErrChoiceNotInPoll},
		{"inactive poll", "inactive", 201, authedVoter(7, "10.0.0.1"), ErrPollClosed},
		{"archived poll", "archived", 301, authedVoter(7, "10.0.0.1"), ErrPollClosed},
		{"expired poll", "expired", 401, authedVoter(7, "10.0.0.1"), ErrPollExpired},
		{"anonymous on private poll", "private", 501, anonVoter("10.0.0.1"), ErrLoginRequired},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := svc.CastVote(ctx, c.slug, c.choiceID, c.voter); !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}

	if n := votes.count(1); n != 0 {
		t.Fatalf("rejections must not persist votes, found %d", n)
	}
}

func TestAuthenticatedDuplicateIsConstraintBacked(t *testing.T) {
	polls := newMemoryPolls()
	votes := newMemoryVotes()
	rec := &countingMetrics{}
	svc := NewService(polls, votes, rec)
	ctx := context.Background()

	p, choices := seedPoll(polls, "open", nil)

	v, err := svc.CastVote(ctx, "open", choices[0].ID, authedVoter(7, "10.0.0.1"))
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if v.ID == 0 || v.PollID != p.ID {
		t.Fatalf("unexpected persisted vote %+v", v)
	}

	if _, err := svc.CastVote(ctx, "open", choices[1].ID, authedVoter(7, "10.0.0.2")); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	if rec.total() != 1 {
		t.Fatalf("metrics must count accepted votes only, got %d", rec.total())
	}
}

func TestAnonymousDuplicateByIP(t *testing.T) {
	polls := newMemoryPolls()
	votes := newMemoryVotes()
	svc := NewService(polls, votes, nil)
	ctx := context.Background()

	_, choices := seedPoll(polls, "open", nil)

	if _, err := svc.CastVote(ctx, "open", choices[0].ID, anonVoter("10.0.0.5")); err != nil {
		t.Fatalf("first anonymous vote: %v", err)
	}
	if _, err := svc.CastVote(ctx, "open", choices[1].ID, anonVoter("10.0.0.5")); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted for same IP, got %v", err)
	}
	if _, err := svc.CastVote(ctx, "open", choices[1].ID, anonVoter("10.0.0.6")); err != nil {
		t.Fatalf("different IP must be accepted: %v", err)
	}
}

func TestAllowMultipleVotesSkipsDedup(t *testing.T) {
	polls := newMemoryPolls()
	votes := newMemoryVotes()
	svc := NewService(polls, votes, nil)
	ctx := context.Background()

	p, choices := seedPoll(polls, "multi", func(p *poll.Poll) { p.AllowMultipleVotes = true })

	for i := 0; i < 3; i++ {
		if _, err := svc.CastVote(ctx, "multi", choices[0].ID, authedVoter(7, "10.0.0.1")); err != nil {
			t.Fatalf("repeat authed vote %d: %v", i, err)
		}
		if _, err := svc.CastVote(ctx, "multi", choices[1].ID, anonVoter("10.0.0.5")); err != nil {
			t.Fatalf("repeat anonymous vote %d: %v", i, err)
		}
	}

	if n := votes.count(p.ID); n != 6 {
		t.Fatalf("expected 6 votes, got %d", n)
	}
}

func TestTally(t *testing.T) {
	polls := newMemoryPolls()
	votes := newMemoryVotes()
	svc := NewService(polls, votes, nil)
	ctx := context.Background()

	_, choices := seedPoll(polls, "open", nil)

	// Empty poll: every choice present, every percentage zero.
	results, total, err := svc.Tally(ctx, "open")
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if total != 0 || len(results) != 3 {
		t.Fatalf("expected 3 zero-count results, got total=%d len=%d", total, len(results))
	}
	for i, res := range results {
		if res.ChoiceID != choices[i].ID {
			t.Fatalf("results out of display order: %+v", results)
		}
		if res.Votes != 0 || res.Percentage != 0 {
			t.Fatalf("expected zeros for empty poll, got %+v", res)
		}
	}

	for i, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		choice := choices[0]
		if i == 2 {
			choice = choices[1]
		}
		if _, err := svc.CastVote(ctx, "open", choice.ID, anonVoter(ip)); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}

	results, total, err = svc.Tally(ctx, "open")
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	var sum float64
	for _, res := range results {
		sum += res.Percentage
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("percentages must sum to 100, got %f", sum)
	}
	if results[0].Votes != 2 || results[1].Votes != 1 || results[2].Votes != 0 {
		t.Fatalf("unexpected counts: %+v", results)
	}

	if _, _, err := svc.Tally(ctx, "missing"); !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}
}

func TestConcurrentAuthenticatedVotes(t *testing.T) {
	polls := newMemoryPolls()
	votes := newMemoryVotes()
	rec := &countingMetrics{}
	svc := NewService(polls, votes, rec)
	ctx := context.Background()

	p, choices := seedPoll(polls, "open", nil)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.CastVote(ctx, "open", choices[0].ID, authedVoter(7, "10.0.0.1"))
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	accepted, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrAlreadyVoted):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || duplicates != n-1 {
		t.Fatalf("expected 1 accepted and %d duplicates, got %d/%d", n-1, accepted, duplicates)
	}
	if got := votes.count(p.ID); got != 1 {
		t.Fatalf("expected a single persisted vote, got %d", got)
	}
	if rec.total() != 1 {
		t.Fatalf("expected metrics count 1, got %d", rec.total())
	}
}

// gatedVotes delays every anonymous duplicate check until all expected
// callers have arrived, forcing the check-then-insert interleaving.
type gatedVotes struct {
	*memoryVotes
	barrier *sync.WaitGroup
}

func (g *gatedVotes) HasAnonymousVote(ctx context.Context, pollID int64, ip string) (bool, error) {
	voted, err := g.memoryVotes.HasAnonymousVote(ctx, pollID, ip)
	g.barrier.Done()
	g.barrier.Wait()
	return voted, err
}

// The anonymous path has no storage constraint behind it: two concurrent
// requests from the same IP can both pass the duplicate check and both
// commit. This pins that behavior down so a future "fix" shows up loudly.
func TestAnonymousDuplicateRace(t *testing.T) {
	polls := newMemoryPolls()
	inner := newMemoryVotes()
	var barrier sync.WaitGroup
	barrier.Add(2)
	votes := &gatedVotes{memoryVotes: inner, barrier: &barrier}
	svc := NewService(polls, votes, nil)
	ctx := context.Background()

	p, choices := seedPoll(polls, "open", nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CastVote(ctx, "open", choices[0].ID, anonVoter("10.0.0.5"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("both racing votes should be accepted: %v", err)
		}
	}
	if got := inner.count(p.ID); got != 2 {
		t.Fatalf("expected the race to produce 2 votes, got %d", got)
	}
}

func TestCastVoteValidationOrder(t *testing.T) {
	polls := newMemoryPolls()
	votes := newMemoryVotes()
	svc := NewService(polls, votes, nil)
	ctx := context.Background()

	// A poll that is both inactive and expired must fail the choice check
	// first when the choice is foreign, and the active check before expiry.
	seedPoll(polls, "dead", func(p *poll.Poll) {
		p.IsActive = false
		past := time.Now().Add(-time.Hour)
		p.EndDate = &past
	})

	if _, err := svc.CastVote(ctx, "dead", 999999, authedVoter(7, "10.0.0.1")); !errors.Is(err, ErrChoiceNotInPoll) {
		t.Fatalf("choice check must come first, got %v", err)
	}
	if _, err := svc.CastVote(ctx, "dead", 101, authedVoter(7, "10.0.0.1")); !errors.Is(err, ErrPollClosed) {
		t.Fatalf("active check must precede expiry, got %v", err)
	}
}

func TestTallyPercentageRounding(t *testing.T) {
	polls := newMemoryPolls()
	votes := newMemoryVotes()
	svc := NewService(polls, votes, nil)
	ctx := context.Background()

	seedPoll(polls, "thirds", nil)
	_, choices := polls.GetBySlugNoErr("thirds")

	for i, c := range choices {
		if _, err := svc.CastVote(ctx, "thirds", c.ID, anonVoter(fmt.Sprintf("10.0.1.%d", i))); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}

	results, total, err := svc.Tally(ctx, "thirds")
	if err != nil || total != 3 {
		t.Fatalf("tally: total=%d err=%v", total, err)
	}
	var sum float64
	for _, res := range results {
		sum += res.Percentage
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("one-third splits must still sum to 100, got %.12f", sum)
	}
}

func (m *memoryPolls) GetBySlugNoErr(slug string) (*poll.Poll, []poll.Choice) {
	p, c, _ := m.GetBySlug(context.Background(), slug)
	return p, c
}
