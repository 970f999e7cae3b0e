package id

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cleared-dev/rentbook/internal/model"
)

// FormatTrackingID returns a tracking ID like "ELECTRICITY-2025-01-UMALO".
// The same (category, period, payer) always yields the same ID.
func FormatTrackingID(category string, period model.Period, payer string) string {
	return fmt.Sprintf("%s-%04d-%02d-%s", Slug(category), period.Year, period.Month, Slug(payer))
}

// ParseTrackingID parses "ELECTRICITY-2025-01-UMALO" into its parts.
// Category and payer come back in slug form.
func ParseTrackingID(trackingID string) (category string, period model.Period, payer string, err error) {
	parts := strings.Split(trackingID, "-")
	if len(parts) != 4 {
		return "", model.Period{}, "", fmt.Errorf("invalid tracking ID format: %q", trackingID)
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", model.Period{}, "", fmt.Errorf("invalid year in tracking ID %q: %w", trackingID, err)
	}

	month, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", model.Period{}, "", fmt.Errorf("invalid month in tracking ID %q: %w", trackingID, err)
	}
	if month < 1 || month > 12 {
		return "", model.Period{}, "", fmt.Errorf("invalid month in tracking ID %q", trackingID)
	}

	if parts[0] == "" || parts[3] == "" {
		return "", model.Period{}, "", fmt.Errorf("invalid tracking ID format: %q", trackingID)
	}

	return parts[0], model.Period{Year: year, Month: month}, parts[3], nil
}

// Slug keeps only letters and digits, upper-cased. Non-ASCII letters are
// kept, so distinct names stay distinct.
// "Uma Lo" -> "UMALO", "property_tax" -> "PROPERTYTAX", "Zoë" -> "ZOË"
func Slug(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, s)
}

// ContainsRef reports whether text mentions trackingID, ignoring case,
// punctuation and spacing ("paid electricity 2025/01 uma lo" matches).
// The reference must start and end on a word boundary in text, so
// "ELECTRICITY-2025-01-ALICE" does not mention "ELECTRICITY-2025-01-AL".
func ContainsRef(text, trackingID string) bool {
	ref := Slug(trackingID)
	if ref == "" {
		return false
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i := range words {
		var acc strings.Builder
		for _, w := range words[i:] {
			acc.WriteString(Slug(w))
			got := acc.String()
			if got == ref {
				return true
			}
			if !strings.HasPrefix(ref, got) {
				break
			}
		}
	}
	return false
}
