package runs

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxPage returns the largest page number among the pagination labels.
// Labels without any digit ("next", "«") are ignored; for the others the
// first whitespace-separated all-digit token is the page number. A listing
// that renders no numeric label yields 0.
func MaxPage(labels []string) int {
	maxPage := 0
	for _, label := range labels {
		s := strings.TrimSpace(label)
		if !strings.ContainsFunc(s, unicode.IsDigit) {
			continue
		}
		for _, field := range strings.Fields(s) {
			if !isDigits(field) {
				continue
			}
			page, err := strconv.Atoi(field)
			if err != nil {
				break
			}
			if page > maxPage {
				maxPage = page
			}
			break
		}
	}
	return maxPage
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
