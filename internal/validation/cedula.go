package validation

import (
	"strconv"
	"strings"
)

// CedulaLength is the number of digits of an Ecuadorian national id.
const CedulaLength = 10

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsCedulaShape reports whether id is exactly ten ASCII digits after trimming.
func IsCedulaShape(id string) bool {
	c := strings.TrimSpace(id)
	return len(c) == CedulaLength && isDigits(c)
}

// ValidateCedula applies the Module-10 check over the first nine digits.
// Even positions (0-indexed) are doubled, subtracting 9 above 9; odd positions
// are added as is. The check digit is (10 - sum%10) % 10.
func ValidateCedula(id string) bool {
	c := strings.TrimSpace(id)
	if len(c) != CedulaLength || !isDigits(c) {
		return false
	}

	sum := 0
	for i := 0; i < CedulaLength-1; i++ {
		d := int(c[i] - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}

	return (10-sum%10)%10 == int(c[CedulaLength-1]-'0')
}

// CedulaFitsUint32 reports whether the id is storable in an unsigned 32-bit
// column. Non-numeric input does not fit.
func CedulaFitsUint32(id string) bool {
	c := strings.TrimSpace(id)
	if !isDigits(c) {
		return false
	}
	_, err := strconv.ParseUint(c, 10, 32)
	return err == nil
}

// SanitizeCedulaInput keeps only digits and at most ten of them.
func SanitizeCedulaInput(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == CedulaLength {
				break
			}
		}
	}
	return b.String()
}
