package domain

import (
	"strings"
	"unicode"
)

// DigitsOnly strips every non-digit rune
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCNPJ returns the canonical XX.XXX.XXX/XXXX-XX form when s holds
// exactly 14 digits, and the trimmed input otherwise.
func NormalizeCNPJ(s string) string {
	d := DigitsOnly(s)
	if len(d) != 14 {
		return strings.TrimSpace(s)
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

// IsHeadOffice reports whether the CNPJ branch suffix is 0001
func IsHeadOffice(cnpj string) bool {
	d := DigitsOnly(cnpj)
	return len(d) == 14 && d[8:12] == "0001"
}

func normalizeUpper(s string) string {
	return strings.ToUpper(strings.TrimFunc(s, unicode.IsSpace))
}
