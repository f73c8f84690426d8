package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestPasswordService() *PasswordService {
	return newPasswordServiceWithCost(bcrypt.MinCost)
}

// =========================================================================
// Hash + Verify
// =========================================================================

func TestPasswordService_HashThenVerify(t *testing.T) {
	ps := newTestPasswordService()

	tests := []struct {
		name        string
		password    string
		wantHashErr bool
	}{
		{"registration example", "pw1", false},
		{"symbols", "p@$$w0rd!#%", false},
		{"multibyte", "пароль-密码", false},
		{"single space", " ", false},
		{"at the byte limit", strings.Repeat("a", MaxPasswordBytes), false},
		{"multibyte at the byte limit", strings.Repeat("é", MaxPasswordBytes/2), false},
		{"one byte over", strings.Repeat("a", MaxPasswordBytes+1), true},
		{"multibyte over the byte limit", strings.Repeat("é", MaxPasswordBytes/2+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := ps.Hash(tt.password)
			if tt.wantHashErr {
				if err == nil {
					t.Fatalf("Hash() accepted a %d-byte password", len(tt.password))
				}
				return
			}
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}

			if cost, err := bcrypt.Cost([]byte(hash)); err != nil || cost != bcrypt.MinCost {
				t.Errorf("bcrypt.Cost(hash) = %d, %v; want %d", cost, err, bcrypt.MinCost)
			}
			if err := ps.Verify(hash, tt.password); err != nil {
				t.Errorf("Verify() with the hashed password = %v, want nil", err)
			}
			if err := ps.Verify(hash, "x"+tt.password); !errors.Is(err, ErrPasswordMismatch) {
				t.Errorf("Verify() with a different password = %v, want ErrPasswordMismatch", err)
			}
		})
	}
}

func TestPasswordService_HashIsSalted(t *testing.T) {
	ps := newTestPasswordService()

	first, err := ps.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := ps.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password are identical")
	}
}

// A stored hash keeps the cost it was made with, so raising the service cost
// never locks out existing accounts.
func TestPasswordService_VerifyUsesStoredCost(t *testing.T) {
	old := newPasswordServiceWithCost(bcrypt.MinCost + 1)
	hash, err := old.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := newTestPasswordService().Verify(hash, "pw1"); err != nil {
		t.Errorf("Verify() across costs = %v, want nil", err)
	}
}

// =========================================================================
// Verify error kinds
// =========================================================================

func TestPasswordService_VerifyMalformedHash(t *testing.T) {
	ps := newTestPasswordService()

	tests := []struct {
		name   string
		hash   string
		wantIs error
	}{
		{"empty", "", bcrypt.ErrHashTooShort},
		{"too short", "not-a-valid-bcrypt-hash", bcrypt.ErrHashTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, "pw1")
			if err == nil {
				t.Fatal("Verify() = nil for a malformed hash")
			}
			// A corrupt row is a server fault, not a wrong password.
			if errors.Is(err, ErrPasswordMismatch) {
				t.Errorf("Verify() = %v, must not be ErrPasswordMismatch", err)
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("Verify() = %v, want it to wrap %v", err, tt.wantIs)
			}
		})
	}
}

func TestPasswordService_VerifyDummyNeverMatches(t *testing.T) {
	ps := newTestPasswordService()

	for _, pw := range []string{"", "pw1", "socialfeed-dummy-password"} {
		if err := ps.VerifyDummy(pw); !errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("VerifyDummy(%q) = %v, want ErrPasswordMismatch", pw, err)
		}
	}
}

func TestNewPasswordService_BadCostPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("newPasswordServiceWithCost(bcrypt.MaxCost+1) did not panic")
		}
	}()
	newPasswordServiceWithCost(bcrypt.MaxCost + 1)
}
