package slug

import (
	"context"
	"errors"
	"math/rand"
	"strings"
)

// ErrExhausted is returned when a unique slug could not be found within the
// attempt budget. With a 4-char random suffix this is effectively unreachable
// outside of a broken ExistsFunc, but the loop must not spin forever.
var ErrExhausted = errors.New("could not generate a unique slug")

const (
	suffixLen   = 4
	maxAttempts = 10
	suffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Make lowercases the title and collapses every run of non-alphanumeric
// characters into a single hyphen.
func Make(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingSep := false
	for _, r := range strings.ToLower(title) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('-')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Generate returns a slug derived from title that exists reports as free.
// The base slug is tried first; on collision a random suffix is appended and
// retried up to maxAttempts times.
func Generate(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	base := Make(title)
	if base == "" {
		base = randomSuffix()
	}

	candidate := base
	for i := 0; i < maxAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + randomSuffix()
	}
	return "", ErrExhausted
}

func randomSuffix() string {
	b := make([]byte, suffixLen)
	for i := range b {
		b[i] = suffixChars[rand.Intn(len(suffixChars))]
	}
	return string(b)
}
