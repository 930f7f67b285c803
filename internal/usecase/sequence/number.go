package sequence

import (
	"fmt"
	"strings"
	"time"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

// KeyFor builds the sequence key of a declaration from its date, customs
// office and license. Non-digits are dropped; the license is left-padded to
// four digits and the office to two.
func KeyFor(date time.Time, office, license string) (domain.SequenceKey, error) {
	key := domain.SequenceKey{
		Year:    fmt.Sprintf("%02d", date.Year()%100),
		Office:  padDigits(office, 2),
		License: padDigits(license, 4),
	}
	return key, key.Validate()
}

func padDigits(s string, width int) string {
	d := domain.OnlyDigits(s)
	if d == "" {
		return ""
	}
	if len(d) < width {
		d = strings.Repeat("0", width-len(d)) + d
	}
	return d
}

// FormatConsecutive zero-pads n to six digits.
func FormatConsecutive(n int) string {
	return fmt.Sprintf("%06d", n)
}

// DisplayNumber is the printed pedimento number: last digit of the year
// followed by the six-digit consecutive.
func DisplayNumber(key domain.SequenceKey, n int) string {
	year := key.Year
	if year == "" {
		return FormatConsecutive(n)
	}
	return year[len(year)-1:] + FormatConsecutive(n)
}
