// Package textnorm canonicalizes whitespace in extracted page text
// before chunking. Chunk offsets always refer to the normalized text.
package textnorm

import "strings"

var replacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\t", " ",
	"\ufeff", "",
)

// Normalize returns the canonical form of the given page text: tabs
// become single spaces, CR and CRLF become LF, and byte order marks
// are dropped. Pure and deterministic; never fails.
func Normalize(text string) string {
	return replacer.Replace(text)
}
