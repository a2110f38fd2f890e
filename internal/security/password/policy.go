package password

import (
	"errors"
	"strings"
	"unicode"
)

// ErrPolicy se retorna (envuelto en *PolicyError) cuando el secreto no
// cumple la política.
var ErrPolicy = errors.New("password: policy violation")

// PolicyError lista las reglas incumplidas.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "password: policy violation: " + strings.Join(e.Reasons, ", ")
}

func (e *PolicyError) Unwrap() error { return ErrPolicy }

// Policy son las reglas mínimas para un secreto nuevo.
type Policy struct {
	MinLength     int
	RequireLetter bool
	RequireDigit  bool
	RequireSymbol bool
}

var DefaultPolicy = Policy{MinLength: 8, RequireLetter: true, RequireDigit: true}

// Validate retorna nil o un *PolicyError.
func (p Policy) Validate(s string) error {
	var reasons []string
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireLetter && !hasL {
		reasons = append(reasons, "missing_letter")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if len(reasons) > 0 {
		return &PolicyError{Reasons: reasons}
	}
	return nil
}
