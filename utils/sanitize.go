package utils

import "github.com/microcosm-cc/bluemonday"

// Gym descriptions come from untrusted operators, so strip everything.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize cleans user supplied text before it is stored or served.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
