// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the store
//
// Services take repository interfaces, never a concrete store, so the same
// code runs on SQLite, MongoDB or the in-memory fakes in the tests. They return
// apperror values and know nothing about HTTP.
package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/socialfeed/internal/apperror"
	"github.com/sakif/socialfeed/internal/cipher"
)

const (
	// MaxContentLength is measured in characters (runes), not bytes.
	MaxContentLength = 280
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Notifier fans a message out to connected feed clients.
type Notifier interface {
	Broadcast(msg string) int
}

// clampLimit applies the listing rules: negative is rejected, above the cap
// is clamped. Zero passes through and callers short-circuit on it.
func clampLimit(limit int) (int, error) {
	if limit < 0 {
		return 0, apperror.ValidationFailed("limit", "limit must not be negative")
	}
	if limit > MaxListLimit {
		return MaxListLimit, nil
	}
	return limit, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperror.ValidationFailed("content", "content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return nil
}

// contentCodec turns plaintext into a stored body and back, encrypting only
// the kinds the policy names.
type contentCodec struct {
	cipher *cipher.Cipher
	policy cipher.Policy
}

func (c contentCodec) seal(kind cipher.Kind, plaintext string) (body []byte, encrypted bool, err error) {
	if !c.policy.Encrypts(kind) {
		return []byte(plaintext), false, nil
	}
	body, err = c.cipher.Seal(plaintext)
	if err != nil {
		return nil, false, fmt.Errorf("encrypting %s: %w", kind, err)
	}
	return body, true, nil
}

// open reads a stored body. Rows are decided by their own flag, not the
// current policy, so changing the policy never breaks rows written before.
func (c contentCodec) open(body []byte, encrypted bool) cipher.Result {
	if !encrypted {
		return cipher.Decrypted{Text: string(body)}
	}
	return c.cipher.Open(body)
}
