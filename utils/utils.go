package utils

import (
	"log"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SendJSONError sends a standardized JSON error response and logs the internal error.
// The body always carries a "reply" field so the chat platform has
// something renderable, whatever the status code.
func SendJSONError(c *gin.Context, statusCode int, publicMsg string, internalError error) {
	if internalError != nil {
		log.Printf("ERROR: Handler error: status_code=%d, public_message='%s', internal_error='%v', path='%s'",
			statusCode, publicMsg, internalError, c.Request.URL.Path)
	} else {
		log.Printf("INFO: Handler response: status_code=%d, public_message='%s', path='%s'",
			statusCode, publicMsg, c.Request.URL.Path)
	}

	c.AbortWithStatusJSON(statusCode, gin.H{"reply": publicMsg})
}

var (
	punctuation      = regexp.MustCompile(`[!?.,;:()\[\]{}"'` + "`" + `]+`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	stripCombining   = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeText folds a message for phrase matching: diacritics
// stripped, lowercased, punctuation removed, whitespace collapsed.
// "Réinitialise !" and "reinitialise" normalize identically.
func NormalizeText(s string) string {
	folded, _, err := transform.String(stripCombining, s)
	if err != nil {
		// Transformation only fails on malformed input; fall back to the
		// raw string rather than losing the message.
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = punctuation.ReplaceAllString(folded, "")
	folded = whitespaceRuns.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// CollapseWhitespace trims a string and squeezes interior whitespace
// runs to single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}
