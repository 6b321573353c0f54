package password

import (
	"fmt"
	"strings"
)

// Symbols is the fixed punctuation set a strong password must draw at
// least one character from.
const Symbols = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// Policy enforces the composition rules applied on every credential-setting
// path before hashing: registration, self-service change, and
// administrative set.
type Policy struct {
	MinLength int
}

// NewPolicy describes the newpolicy operation and its observable behavior.
//
// NewPolicy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewPolicy(minLength int) *Policy {
	if minLength <= 0 {
		minLength = 8
	}
	return &Policy{MinLength: minLength}
}

// Check returns the list of violated rules for the candidate password. An
// empty slice means the password satisfies the policy. The candidate is
// never retained or logged.
func (p *Policy) Check(plain string) []string {
	var reasons []string

	if len(plain) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range plain {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(Symbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		reasons = append(reasons, "must contain an uppercase letter")
	}
	if !hasLower {
		reasons = append(reasons, "must contain a lowercase letter")
	}
	if !hasDigit {
		reasons = append(reasons, "must contain a digit")
	}
	if !hasSymbol {
		reasons = append(reasons, "must contain a symbol")
	}

	return reasons
}

// IsStrong reports whether the candidate satisfies every composition rule.
func (p *Policy) IsStrong(plain string) bool {
	return len(p.Check(plain)) == 0
}
