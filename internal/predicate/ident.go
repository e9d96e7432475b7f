package predicate

import (
	"regexp"
	"strings"

	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s is a bare SQL identifier.
func ValidIdent(s string) bool {
	return len(s) <= 63 && identPattern.MatchString(s)
}

// ValidColumn reports whether s is "col" or "table.col" made of valid identifiers.
func ValidColumn(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return false
	}
	for _, p := range parts {
		if !ValidIdent(p) {
			return false
		}
	}
	return true
}

func checkIdent(field, s string) error {
	if !ValidIdent(s) {
		return apierr.Validation(field, "%q is not a valid identifier", s)
	}
	return nil
}

func checkColumn(field, s string) error {
	if !ValidColumn(s) {
		return apierr.Validation(field, "%q is not a valid column reference", s)
	}
	return nil
}
