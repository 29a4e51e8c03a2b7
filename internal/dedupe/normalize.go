package dedupe

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/contactlyapp/contactly-server/internal/domain"
)

// Phone numbers longer than this are assumed to carry a country code digit.
const nationalPhoneDigits = 10

// Normalize canonicalizes a raw field value for comparison.
// Empty input always yields "".
func Normalize(field, raw string, s Sensitivity) string {
	switch field {
	case domain.FieldEmail:
		return normalizeEmail(raw, s)
	case domain.FieldPhone:
		return normalizePhone(raw, s)
	case domain.FieldName:
		return normalizeName(raw, s)
	default:
		return collapseSpaces(strings.ToLower(raw))
	}
}

func normalizeEmail(raw string, s Sensitivity) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if s.exact() {
		return email
	}
	local, host, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	if tag := strings.IndexByte(local, '+'); tag >= 0 {
		local = local[:tag]
	}
	return local + "@" + host
}

func normalizePhone(raw string, s Sensitivity) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if !s.exact() && len(digits) > nationalPhoneDigits {
		digits = digits[1:]
	}
	return digits
}

// stripMarks returns a fresh accent-folding chain. Chains hold state and
// must not be shared between goroutines.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func normalizeName(raw string, s Sensitivity) string {
	name := strings.ToLower(raw)
	if !s.exact() {
		if folded, _, err := transform.String(stripMarks(), name); err == nil {
			name = folded
		}
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case r == '\'' || r == '’':
			return -1
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return ' '
		}
		return r
	}, name)

	tokens := strings.Fields(name)
	if s == Low {
		slices.Sort(tokens)
	}
	return strings.Join(tokens, " ")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
