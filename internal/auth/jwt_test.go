package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/socialfeed/internal/apperror"
	"github.com/sakif/socialfeed/internal/testutil"
)

const testSecret = "test-secret-at-least-16-chars!!"

// newTestTokenService creates a TokenService with a fixed secret and a stub
// clock, so tests are deterministic.
func newTestTokenService(t *testing.T) (*TokenService, *testutil.StubClock) {
	t.Helper()
	clk := testutil.FixedClock()
	ts, err := NewTokenService(testSecret, time.Hour, clk)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts, clk
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour, nil)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0, nil)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
	if ts.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", ts.TTL(), DefaultTokenTTL)
	}
}

// =========================================================================
// GENERATE TESTS
// =========================================================================

func TestGenerate_ReturnsJWTShapedToken(t *testing.T) {
	ts, _ := newTestTokenService(t)

	token, err := ts.Generate("user-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// header.payload.signature
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Generate() token doesn't look like a JWT (expected 2 dots, got %d)", got)
	}
}

func TestGenerate_DifferentUsersGetDifferentTokens(t *testing.T) {
	ts, _ := newTestTokenService(t)

	token1, _ := ts.Generate("user-aaa")
	token2, _ := ts.Generate("user-bbb")

	if token1 == token2 {
		t.Error("Generate() returned identical tokens for different user IDs")
	}
}

// =========================================================================
// VALIDATE TESTS
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts, _ := newTestTokenService(t)
	userID := "user-abc-123"

	token, err := ts.Generate(userID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != userID {
		t.Errorf("Validate() userID = %q, want %q", got, userID)
	}
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		issueAt time.Duration // offset from the stub clock's whole-second start
		advance time.Duration
		wantErr bool
	}{
		{"just issued", 0, 0, false},
		{"one second before expiry", 0, time.Hour - time.Second, false},
		{"a nanosecond before expiry", 0, time.Hour - time.Nanosecond, false},
		{"one second after expiry", 0, time.Hour + time.Second, true},
		{"a day later", 0, 24 * time.Hour, true},
		{"issued mid-second, half a second before expiry", 900 * time.Millisecond, time.Hour - 500*time.Millisecond, false},
		{"issued mid-second, at expiry", 900 * time.Millisecond, time.Hour, false},
		{"issued mid-second, one second after expiry", 900 * time.Millisecond, time.Hour + time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, clk := newTestTokenService(t)
			clk.Advance(tt.issueAt)

			token, err := ts.Generate("user-123")
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			clk.Advance(tt.advance)

			_, err = ts.Validate(token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() after %v: err = %v, wantErr %v", tt.advance, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperror.ErrUnauthorized) {
				t.Errorf("Validate() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts, _ := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("user-123", -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	_, err = ts.Validate(token)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Validate() error = %v, want ErrUnauthorized", err)
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts, _ := newTestTokenService(t)

	token, _ := ts.Generate("user-123")

	// Replace the tail of the signature segment.
	tampered := token[:len(token)-3] + "xxx"

	_, err := ts.Validate(tampered)
	if err == nil {
		t.Fatal("Validate() should return an error for a tampered token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!", time.Hour, nil)
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour, nil)

	token, _ := ts1.Generate("user-123")

	_, err := ts2.Validate(token)
	if err == nil {
		t.Fatal("Validate() should fail when using a different secret")
	}
}

func TestValidate_RejectsGarbage(t *testing.T) {
	ts, _ := newTestTokenService(t)

	for _, input := range []string{"", "not.a.jwt.token", "this.is.garbage"} {
		_, err := ts.Validate(input)
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("Validate(%q) error = %v, want ErrUnauthorized", input, err)
		}
	}
}

func TestValidate_EmptySubject(t *testing.T) {
	ts, _ := newTestTokenService(t)

	token, err := ts.Generate("")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Fatal("Validate() should reject a token without a subject")
	}
}
