package phone

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("invalid phone number")

const defaultCountryCode = "39"

// Normalizer turns free-form phone input into a +-prefixed dialable
// number. Bare 10-digit national numbers get the configured country code
// prepended first; the heuristic only fits the default country's numbering
// plan and is not a general E.164 normalizer.
type Normalizer struct {
	countryCode string
}

func NewNormalizer(countryCode string) *Normalizer {
	if countryCode == "" {
		countryCode = defaultCountryCode
	}
	return &Normalizer{countryCode: countryCode}
}

func (n *Normalizer) Normalize(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalid
	}

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return "", ErrInvalid
	}

	if len(cleaned) == 10 && !strings.HasPrefix(cleaned, n.countryCode) {
		cleaned = n.countryCode + cleaned
	}
	return "+" + cleaned, nil
}
