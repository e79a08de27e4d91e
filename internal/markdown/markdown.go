// Package markdown reads and writes the bookmark list document: a Markdown
// file whose bookmark lines look like
//
//	- [Title](https://example.com) #tag1 #tag2
//
// Everything that is not a bookmark line (headings, prose, blank lines) is
// ignored by the parser and preserved by the writer.
package markdown

import (
	"regexp"
	"sort"
	"strings"

	"github.com/osmoscraft/osmosync/internal/entry"
)

// entryPattern matches one bookmark line. The title may contain escaped
// brackets. The href is either wrapped in angle brackets, with \, < and >
// backslash-escaped, or bare, in which case it holds no whitespace and its
// parentheses nest at most one level deep.
var entryPattern = regexp.MustCompile(
	`^\s*[-*+]\s+\[((?:[^\]\\]|\\.)*)\]\(` +
		`(?:<((?:[^<>\\\r\n]|\\.)*)>|((?:[^()\s<]|\([^()\s]*\))(?:[^()\s]|\([^()\s]*\))*))` +
		`\)(.*)$`)

// bareHref matches hrefs that can be written without angle brackets.
var bareHref = regexp.MustCompile(`^(?:[^()\s<]|\([^()\s]*\))(?:[^()\s]|\([^()\s]*\))*$`)

// tagPattern matches a #tag token in the text following a bookmark link.
var tagPattern = regexp.MustCompile(`(?:^|\s)#([^\s#]+)`)

var (
	titleEscaper   = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)
	titleUnescaper = strings.NewReplacer(`\\`, `\`, `\[`, `[`, `\]`, `]`)
	lineCollapser  = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	hrefEscaper    = strings.NewReplacer(`\`, `\\`, `<`, `\<`, `>`, `\>`)
	hrefUnescaper  = strings.NewReplacer(`\\`, `\`, `\<`, `<`, `\>`, `>`)
)

// ParseAll extracts every bookmark entry from text in document order.
// Duplicate hrefs are returned as they appear; collapsing them is the
// caller's concern (see entry.Set).
func ParseAll(text string) []entry.Entry {
	var entries []entry.Entry

	for _, line := range splitLines(text) {
		e, ok := parseLine(line)
		if ok {
			entries = append(entries, e)
		}
	}

	return entries
}

func parseLine(line string) (entry.Entry, bool) {
	m := entryPattern.FindStringSubmatch(line)
	if m == nil {
		return entry.Entry{}, false
	}

	href := m[3]
	if href == "" {
		href = hrefUnescaper.Replace(m[2])
	}

	return entry.Entry{
		Title: titleUnescaper.Replace(m[1]),
		Href:  href,
	}, true
}

// FormatEntry renders e as a single bookmark line without a trailing newline.
// Hrefs that would not survive as a bare link destination, such as
// bookmarklets with spaces or URLs with unbalanced parentheses, are wrapped
// in angle brackets. Chromium strips line breaks from stored URLs, so an
// href never spans lines.
func FormatEntry(e entry.Entry) string {
	title := strings.TrimSpace(lineCollapser.Replace(e.Title))

	href := e.Href
	if !bareHref.MatchString(href) {
		href = "<" + hrefEscaper.Replace(href) + ">"
	}

	return "- [" + titleEscaper.Replace(title) + "](" + href + ")"
}

// Prepend inserts entries, in the given order, before the first bookmark
// line of text. When text has no bookmark lines the entries are appended
// after the existing content instead.
func Prepend(text string, entries []entry.Entry) string {
	if len(entries) == 0 {
		return text
	}

	added := make([]string, len(entries))
	for i, e := range entries {
		added[i] = FormatEntry(e)
	}

	lines := splitLines(text)

	for i, line := range lines {
		if _, ok := parseLine(line); !ok {
			continue
		}

		out := make([]string, 0, len(lines)+len(added))
		out = append(out, lines[:i]...)
		out = append(out, added...)
		out = append(out, lines[i:]...)

		return joinLines(out, text)
	}

	if strings.TrimSpace(text) == "" {
		return strings.Join(added, "\n") + "\n"
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	return text + strings.Join(added, "\n") + "\n"
}

// UniqueTags returns the sorted set of #tags used on bookmark lines.
func UniqueTags(text string) []string {
	seen := make(map[string]struct{})

	for _, line := range splitLines(text) {
		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		for _, tm := range tagPattern.FindAllStringSubmatch(m[4], -1) {
			seen[tm[1]] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}

	sort.Strings(tags)

	return tags
}

// splitLines splits on "\n" and strips a trailing "\r" from each line. A
// trailing newline does not produce an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	return lines
}

// joinLines rejoins lines, keeping the original text's line ending style and
// trailing newline.
func joinLines(lines []string, original string) string {
	sep := "\n"
	if strings.Contains(original, "\r\n") {
		sep = "\r\n"
	}

	out := strings.Join(lines, sep)
	if strings.HasSuffix(original, "\n") {
		out += sep
	}

	return out
}
