// Package identity generates public identifiers (certificate IDs and team
// access codes) and claims them against the persisted store.
//
// Codes are drawn independently of any central counter, so uniqueness is
// established optimistically: a candidate is checked, committed, and
// regenerated when either the check or the commit reports it as taken.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
)

const (
	// DefaultAlphabet is uppercase ASCII letters followed by digits.
	DefaultAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultLength      = 6
	DefaultMaxAttempts = 50
)

// Config controls the shape of generated codes and how many attempts Claim makes.
type Config struct {
	Prefix      string
	Alphabet    string
	Length      int
	MaxAttempts int
}

// ExistsFunc reports whether code is already held by some registration.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// CommitFunc persists code. It must return an error wrapping
// apperr.ErrConflict when the store rejects code as a duplicate.
type CommitFunc func(ctx context.Context, code string) error

// Generator produces codes of the form PREFIX-XXXXXX.
type Generator struct {
	cfg    Config
	random io.Reader
}

// NewGenerator creates a generator, filling unset fields with defaults.
func NewGenerator(cfg Config) *Generator {
	if cfg.Alphabet == "" {
		cfg.Alphabet = DefaultAlphabet
	}
	if cfg.Length <= 0 {
		cfg.Length = DefaultLength
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	cfg.Prefix = strings.ToUpper(strings.TrimSpace(cfg.Prefix))
	return &Generator{cfg: cfg, random: rand.Reader}
}

// Config returns the effective configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate returns a fresh candidate code. It does not consult the store.
func (g *Generator) Generate() (string, error) {
	var b strings.Builder
	if g.cfg.Prefix != "" {
		b.WriteString(g.cfg.Prefix)
		b.WriteByte('-')
	}

	size := big.NewInt(int64(len(g.cfg.Alphabet)))
	for i := 0; i < g.cfg.Length; i++ {
		n, err := rand.Int(g.random, size)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b.WriteByte(g.cfg.Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Claim generates codes until one is both reported free by exists and
// accepted by commit. A commit that fails with apperr.ErrConflict (the
// check-then-insert race) counts as a taken code and is retried. Any other
// store error is returned unchanged. After MaxAttempts candidates Claim gives
// up with apperr.ErrGenerationExhausted.
func (g *Generator) Claim(ctx context.Context, exists ExistsFunc, commit CommitFunc) (string, error) {
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := g.Generate()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check identifier: %w", err)
		}
		if taken {
			slog.Debug("Generated identifier already taken", "attempt", attempt)
			continue
		}

		err = commit(ctx, code)
		if errors.Is(err, apperr.ErrConflict) {
			slog.Warn("Identifier claimed concurrently, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}

	return "", fmt.Errorf("%w after %d attempts", apperr.ErrGenerationExhausted, g.cfg.MaxAttempts)
}

// Matches reports whether code has the shape this generator produces.
func (g *Generator) Matches(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if g.cfg.Prefix != "" {
		if !strings.HasPrefix(code, g.cfg.Prefix+"-") {
			return false
		}
		code = strings.TrimPrefix(code, g.cfg.Prefix+"-")
	}
	if len(code) != g.cfg.Length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(g.cfg.Alphabet, r) {
			return false
		}
	}
	return true
}
