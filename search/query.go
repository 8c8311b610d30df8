// Package search maintains a full-text index over the locally stored
// messages and answers /find queries from the composer input line.
package search

import (
	"strconv"
	"strings"
)

const defaultLimit = 10

// Query represents the structured parameters of a message search.
// It decouples the raw chat input from the index engine requirements.
type Query struct {
	RawInput string // The original input line from the user
	Terms    string // The actual text to match against message content
	Author   string // Restrict to one author when set
	Limit    int    // Number of results
}

// ParseQuery extracts command-line style arguments from a raw input.
// Example: /find "markets" --author u42 --limit 5
func ParseQuery(input string) *Query {
	query := &Query{
		RawInput: input,
		Limit:    defaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "author":
				query.Author = val
			case "limit":
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					query.Limit = n
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		// If it's not a flag, it's a search term
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, strings.Trim(part, `"`))
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
