package usecase

import (
	"context"
	"crypto/rand"
	"io"
	"strings"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/ports/repository"
)

const (
	activationCodePrefix   = "SW-"
	activationCodeLength   = 8
	activationCodeAttempts = 10
	// A character set that avoids ambiguous characters like O/0, I/1.
	activationCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NormalizeActivationCode trims and uppercases user or mail supplied codes.
func NormalizeActivationCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ActivationCodeGenerator draws codes that are not yet assigned to any payment.
type ActivationCodeGenerator struct {
	payments repository.PaymentRepository
	rand     io.Reader
	attempts int
}

func NewActivationCodeGenerator(payments repository.PaymentRepository) *ActivationCodeGenerator {
	return &ActivationCodeGenerator{payments: payments, rand: rand.Reader, attempts: activationCodeAttempts}
}

// WithRandSource replaces the entropy source, for deterministic draws in tests.
func (g *ActivationCodeGenerator) WithRandSource(r io.Reader) *ActivationCodeGenerator {
	g.rand = r
	return g
}

// Generate returns ErrCodeGenerationExhausted after the bounded number of
// collisions. A candidate seen taken is never proposed twice in one call.
func (g *ActivationCodeGenerator) Generate(ctx context.Context, tx repository.Tx) (string, error) {
	taken := make(map[string]struct{}, g.attempts)
	for i := 0; i < g.attempts; i++ {
		code, err := g.draw()
		if err != nil {
			return "", err
		}
		if _, seen := taken[code]; seen {
			continue
		}
		exists, err := g.payments.ActivationCodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		taken[code] = struct{}{}
	}
	return "", domain.ErrCodeGenerationExhausted
}

// draw creates a secure, random, and human-readable code. Format: SW-XXXXXXXX
func (g *ActivationCodeGenerator) draw() (string, error) {
	buffer := make([]byte, activationCodeLength)
	if _, err := io.ReadFull(g.rand, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = activationCodeAlphabet[int(buffer[i])%len(activationCodeAlphabet)]
	}
	return activationCodePrefix + string(buffer), nil
}
