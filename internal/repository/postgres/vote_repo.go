package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"voting-service/internal/domain/vote"
)

type VoteRepo struct {
	db *sql.DB
}

func NewVoteRepo(db *sql.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Create inserts the vote row. The votes table carries a partial unique
// index on (poll_id, user_id) for rows with dedup = true and a non-null
// user, so for authenticated voters on single-vote polls the insert itself
// is the duplicate check: the first writer wins and everyone else gets
// ErrAlreadyVoted. Anonymous rows never hit the index.
func (r *VoteRepo) Create(ctx context.Context, v *vote.Vote, dedup bool) error {
	query := `
        INSERT INTO votes (poll_id, choice_id, user_id, ip_address, user_agent, dedup)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, voted_at
    `
	err := r.db.QueryRowContext(ctx, query,
		v.PollID, v.ChoiceID, v.UserID, nullIfEmpty(v.IPAddress), nullIfEmpty(v.UserAgent), dedup,
	).Scan(&v.ID, &v.VotedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return vote.ErrAlreadyVoted
		}
		return err
	}
	return nil
}

func (r *VoteRepo) HasAnonymousVote(ctx context.Context, pollID int64, ip string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM votes
            WHERE poll_id = $1 AND user_id IS NULL AND ip_address = $2
        )
    `, pollID, ip).Scan(&exists)
	return exists, err
}

func (r *VoteRepo) CountByPoll(ctx context.Context, pollID int64) (map[int64]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT choice_id, COUNT(*)
        FROM votes
        WHERE poll_id = $1
        GROUP BY choice_id
    `, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64]int64)
	for rows.Next() {
		var choiceID, c int64
		if err := rows.Scan(&choiceID, &c); err != nil {
			return nil, err
		}
		res[choiceID] = c
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
