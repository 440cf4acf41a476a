// Package refnum generates human-facing complaint reference numbers of the
// form PREFIX-SUFFIX, e.g. ACM-7ZQ4K2M9XD.
package refnum

import (
	"encoding/base32"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	// FallbackPrefix is used when the tenant slug has no letters or digits.
	FallbackPrefix = "CMP"

	prefixLen = 3
	suffixLen = 10 // 50 bits of Crockford base32
)

var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// Generator builds reference numbers. Uniqueness is probabilistic; the
// database unique constraint is the final arbiter and callers retry on
// domain.ErrDuplicateReference.
type Generator struct {
	newUUID func() (uuid.UUID, error)
}

func New() *Generator {
	return &Generator{newUUID: uuid.NewRandom}
}

// NewWithSource returns a Generator drawing randomness from src.
func NewWithSource(src func() (uuid.UUID, error)) *Generator {
	return &Generator{newUUID: src}
}

// Next returns a fresh reference for a complaint in the tenant with slug.
func (g *Generator) Next(slug string) (string, error) {
	id, err := g.newUUID()
	if err != nil {
		return "", fmt.Errorf("refnum.Next: %w", err)
	}
	// Bytes 9..15 of a v4 UUID carry no version or variant bits.
	suffix := crockford.EncodeToString(id[9:])[:suffixLen]
	return Prefix(slug) + "-" + suffix, nil
}

// Prefix derives the upper-cased reference prefix from a tenant slug.
func Prefix(slug string) string {
	var b strings.Builder
	for _, r := range slug {
		if b.Len() == prefixLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return FallbackPrefix
	}
	return b.String()
}
