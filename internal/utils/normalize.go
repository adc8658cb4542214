package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ToProperCase turns identifiers such as "no_show" into "No Show".
func ToProperCase(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	// Casers keep state, so each call gets its own
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}
