package worker

import (
	"context"
	"log/slog"
)

// VoteEvent is published by the vote handler after an accepted vote.
type VoteEvent struct {
	PollID    int64
	ChoiceID  int64
	PollSlug  string
	Anonymous bool
}

// StatsWorker drains accepted-vote events off the hot request path and
// writes an audit line per vote.
type StatsWorker struct {
	Ch  <-chan VoteEvent
	log *slog.Logger
}

func NewStatsWorker(ch <-chan VoteEvent, log *slog.Logger) *StatsWorker {
	if log == nil {
		log = slog.Default()
	}
	return &StatsWorker{Ch: ch, log: log}
}

func (w *StatsWorker) Run(ctx context.Context) {
	w.log.Info("stats worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("stats worker stopped")
			return
		case ev := <-w.Ch:
			w.log.Info("vote recorded",
				"poll", ev.PollSlug,
				"poll_id", ev.PollID,
				"choice_id", ev.ChoiceID,
				"anonymous", ev.Anonymous,
			)
		}
	}
}
