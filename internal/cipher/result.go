package cipher

// Result is the outcome of opening one stored body: either Decrypted or
// Unreadable. Keeping the two apart lets callers (and tests) tell "empty
// content" from "corrupt content".
type Result interface {
	isResult()
}

// Decrypted carries the recovered plaintext.
type Decrypted struct {
	Text string
}

// Unreadable means the body could not be opened: wrong key, tampered or
// truncated data.
type Unreadable struct {
	Err error
}

func (Decrypted) isResult()  {}
func (Unreadable) isResult() {}

// TextOr returns the plaintext for Decrypted and fallback otherwise.
func TextOr(r Result, fallback string) string {
	if d, ok := r.(Decrypted); ok {
		return d.Text
	}
	return fallback
}
