package library

import "strings"

// Replacers scan left to right and try the pairs in order at each position,
// so a backslash is consumed before it can pair with a following character.
var (
	escaper   = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")
	unescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\n`, "\n")
)

// Escape protects backslashes, quotes and newlines in a string value and
// strips carriage returns.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape. Unescape(Escape(s)) == s for any s without '\r'.
func Unescape(s string) string {
	return unescaper.Replace(s)
}
