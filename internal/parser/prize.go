// Package parser extracts monetary prize tags from issue titles.
//
// A tracked issue carries its payout in the title, e.g. "[$500] Fix the
// thing". Multiple tags are allowed ("[$500][$250] ..."); the first is the
// primary prize. Titles without a prize tag are not tracked.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var prizeTag = regexp.MustCompile(`^\s*\[\s*\$\s*(\d+(?:\.\d+)?)\s*\]`)

// Parse extracts the leading prize tags from title and returns them together
// with the cleaned title. Prizes preserve tag order; fractional amounts are
// truncated. A title with no tag returns an empty prize slice and the
// trimmed title unchanged.
func Parse(title string) ([]int, string) {
	var prizes []int
	rest := title

	for {
		m := prizeTag.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			break
		}
		prizes = append(prizes, int(amount))
		rest = rest[len(m[0]):]
	}

	return prizes, strings.TrimSpace(rest)
}

// Serialize rebuilds a bracketed title from prizes and a clean title. It is
// the inverse of Parse and is used when pushing prize changes (e.g. an
// accepted bid) back to the git host.
func Serialize(prizes []int, clean string) string {
	var b strings.Builder
	for _, p := range prizes {
		fmt.Fprintf(&b, "[$%d]", p)
	}
	if b.Len() > 0 && clean != "" {
		b.WriteString(" ")
	}
	b.WriteString(clean)
	return b.String()
}
