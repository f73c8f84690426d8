// Package clock abstracts time retrieval so token expiry and post timestamps
// are deterministic in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// Real returns the actual current time in UTC.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }
