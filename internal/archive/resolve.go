package archive

import (
	"regexp"
	"strconv"
)

var mentionToken = regexp.MustCompile(`<@([^<>]+)>`)

// ResolveMentions rewrites display-name mention tokens of the shape <@Name>
// to <@id> using the author registry. Tokens that are already numeric ids
// pass through untouched; names that match no registered author are rewritten
// to a plain @Name so unmatched text is never corrupted into a fake id.
func ResolveMentions(text string, byName map[string]int64) string {
	return mentionToken.ReplaceAllStringFunc(text, func(token string) string {
		name := token[2 : len(token)-1]
		if isDigits(name) {
			return token
		}
		if id, ok := byName[name]; ok {
			return "<@" + strconv.FormatInt(id, 10) + ">"
		}
		return "@" + name
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
