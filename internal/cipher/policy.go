package cipher

import (
	"fmt"
	"strings"
)

// Kind names a type of user content the policy can cover.
type Kind string

const (
	KindPost    Kind = "posts"
	KindComment Kind = "comments"
)

// Policy decides which kinds of content get sealed before they are stored.
// The zero value encrypts nothing.
type Policy struct {
	kinds map[Kind]bool
}

// DefaultPolicy encrypts posts and stores comments as plain text.
func DefaultPolicy() Policy {
	return NewPolicy(KindPost)
}

// NewPolicy returns a policy that encrypts exactly the given kinds.
func NewPolicy(kinds ...Kind) Policy {
	p := Policy{kinds: make(map[Kind]bool, len(kinds))}
	for _, k := range kinds {
		p.kinds[k] = true
	}
	return p
}

// ParsePolicy reads a comma separated list such as "posts,comments".
// An empty string or "none" encrypts nothing.
func ParsePolicy(list string) (Policy, error) {
	var kinds []Kind
	for _, part := range strings.Split(list, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "", "none":
		case string(KindPost), "post":
			kinds = append(kinds, KindPost)
		case string(KindComment), "comment":
			kinds = append(kinds, KindComment)
		default:
			return Policy{}, fmt.Errorf("cipher: unknown content kind %q", part)
		}
	}
	return NewPolicy(kinds...), nil
}

// Encrypts reports whether content of kind k is sealed before storage.
func (p Policy) Encrypts(k Kind) bool {
	return p.kinds[k]
}

func (p Policy) String() string {
	var parts []string
	for _, k := range []Kind{KindPost, KindComment} {
		if p.kinds[k] {
			parts = append(parts, string(k))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
