package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	numberPrefix = "1000"
	numberLength = 16
)

// NumberGenerator issues account numbers that are unique within the store.
// Candidates are a fixed prefix plus random digits; collisions are retried
// up to the attempt cap.
type NumberGenerator struct {
	store    Store
	attempts int
}

// NewNumberGenerator builds a generator with the given attempt cap.
func NewNumberGenerator(store Store, attempts int) *NumberGenerator {
	if attempts <= 0 {
		attempts = 5
	}
	return &NumberGenerator{store: store, attempts: attempts}
}

// Generate returns a fresh unassigned account number, or
// ErrGenerationExhausted once every attempt collided.
func (g *NumberGenerator) Generate(ctx context.Context) (string, error) {
	for i := 0; i < g.attempts; i++ {
		candidate, err := randomNumber()
		if err != nil {
			return "", err
		}
		exists, err := g.store.NumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrGenerationExhausted
}

func randomNumber() (string, error) {
	var sb strings.Builder
	sb.WriteString(numberPrefix)
	for i := 0; i < numberLength-len(numberPrefix); i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("random digit: %w", err)
		}
		sb.WriteByte(byte('0' + digit.Int64()))
	}
	return sb.String(), nil
}
