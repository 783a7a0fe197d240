package source

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

const maxSummaryRunes = 280

var (
	markupPattern = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	tagPattern    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// summarize reduces dataset notes to a short plain-text summary. Notes that
// contain markup go through readability, falling back to stripping tags when
// readability finds no content. Plain notes are only trimmed.
func summarize(notes, pageURL string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ""
	}

	text := notes
	if markupPattern.MatchString(notes) {
		if rendered, ok := renderText(notes, pageURL); ok {
			text = rendered
		} else {
			text = tagPattern.ReplaceAllString(notes, " ")
		}
	}
	return truncateRunes(strings.Join(strings.Fields(text), " "), maxSummaryRunes)
}

func renderText(html, pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	doc := "<html><body><article>" + html + "</article></body></html>"
	article, err := readability.FromReader(strings.NewReader(doc), u)
	if err != nil {
		return "", false
	}
	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return "", false
	}
	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", false
	}
	return text, true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
