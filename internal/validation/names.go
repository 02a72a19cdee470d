// Package validation normalizes and validates the profile form fields used by
// the agenda pages. Everything here is pure and independent of the page runtime.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DoctorPrefix is the fixed courtesy prefix of every doctor display name.
const DoctorPrefix = "Dr/a. "

const doctorPrefixBare = "Dr/a."

// isNameLetter reports whether r belongs to the name alphabet:
// ASCII letters plus the accented vowels and ñ used in Spanish.
func isNameLetter(r rune) bool {
	if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
		return true
	}
	switch r {
	case 'Á', 'É', 'Í', 'Ó', 'Ú', 'á', 'é', 'í', 'ó', 'ú', 'Ñ', 'ñ':
		return true
	}
	return false
}

func isNameToken(token string) bool {
	if utf8.RuneCountInString(token) < 2 {
		return false
	}
	for _, r := range token {
		if !isNameLetter(r) {
			return false
		}
	}
	return true
}

func keepRunes(value string, keep func(rune) bool) string {
	value = norm.NFC.String(value)
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// OnlyLettersAndSpace drops everything outside the name alphabet and whitespace.
func OnlyLettersAndSpace(value string) string {
	return keepRunes(value, func(r rune) bool {
		return isNameLetter(r) || unicode.IsSpace(r)
	})
}

// OnlyDoctorNameChars is OnlyLettersAndSpace that also keeps '.' and '/'.
func OnlyDoctorNameChars(value string) string {
	return keepRunes(value, func(r rune) bool {
		return isNameLetter(r) || unicode.IsSpace(r) || r == '.' || r == '/'
	})
}

// CollapseSpaces trims the value and collapses internal whitespace runs.
func CollapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// CollapseSpacesKeepTrailing collapses whitespace and drops leading blanks but
// keeps one trailing space when the raw value ended in whitespace, so a second
// token can still be typed.
func CollapseSpacesKeepTrailing(value string) string {
	if value == "" {
		return ""
	}
	collapsed := strings.Join(strings.Fields(value), " ")
	last, _ := utf8.DecodeLastRuneInString(value)
	if !unicode.IsSpace(last) {
		return collapsed
	}
	return collapsed + " "
}

func titleCaseWord(word string) string {
	if word == "" {
		return ""
	}
	lower := cases.Lower(language.Spanish).String(word)
	first, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(first)) + lower[size:]
}

// normalizeTokens is the shared tail of both name pipelines.
func normalizeTokens(v string, keepTrailingSpace bool, prefix string) string {
	if keepTrailingSpace {
		v = CollapseSpacesKeepTrailing(v)
	} else {
		v = CollapseSpaces(v)
	}

	parts := strings.Fields(v)
	if len(parts) > 2 {
		parts = parts[:2]
		v = strings.Join(parts, " ")
	}
	for i, p := range parts {
		parts[i] = titleCaseWord(p)
	}

	normalized := prefix + strings.Join(parts, " ")
	if keepTrailingSpace && strings.HasSuffix(v, " ") && len(parts) < 2 {
		return normalized + " "
	}
	return normalized
}

// NormalizePatientName produces the canonical "Nombre Apellido" form.
func NormalizePatientName(value string, keepTrailingSpace bool) string {
	return normalizeTokens(OnlyLettersAndSpace(value), keepTrailingSpace, "")
}

// StripDoctorPrefix removes a leading "Dr/a." in any letter case and the
// whitespace that follows it.
func StripDoctorPrefix(value string) string {
	if len(value) < len(doctorPrefixBare) || !strings.EqualFold(value[:len(doctorPrefixBare)], doctorPrefixBare) {
		return value
	}
	return strings.TrimLeftFunc(value[len(doctorPrefixBare):], unicode.IsSpace)
}

// NormalizeDoctorName produces the canonical "Dr/a. Nombre Apellido" form.
func NormalizeDoctorName(value string, keepTrailingSpace bool) string {
	v := OnlyDoctorNameChars(StripDoctorPrefix(value))
	return normalizeTokens(v, keepTrailingSpace, DoctorPrefix)
}

// IsValidPatientName reports whether the value holds exactly two name tokens.
func IsValidPatientName(value string) bool {
	parts := strings.Fields(CollapseSpaces(OnlyLettersAndSpace(value)))
	return len(parts) == 2 && isNameToken(parts[0]) && isNameToken(parts[1])
}

// IsValidDoctorName reports whether the value is "Dr/a. " followed by exactly
// two name tokens.
func IsValidDoctorName(value string) bool {
	v := strings.TrimSpace(norm.NFC.String(value))
	if !strings.HasPrefix(v, DoctorPrefix) {
		return false
	}
	body := strings.TrimSpace(v[len(DoctorPrefix):])
	var parts []string
	for _, p := range strings.Split(body, " ") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return len(parts) == 2 && isNameToken(parts[0]) && isNameToken(parts[1])
}
