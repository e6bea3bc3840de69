package text

import "regexp"

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// Order matters: fenced code goes before inline code, bold before italic,
// images before links.
var markdownRewrites = []rewrite{
	{regexp.MustCompile("```[\\s\\S]*?```"), ""},
	{regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`), "$1"},
	{regexp.MustCompile(`(?m)^(.+)\n[=-]{3,}\s*$`), "$1"},
	{regexp.MustCompile(`\*\*([^\n*]+)\*\*`), "$1"},
	{regexp.MustCompile(`__([^\n_]+)__`), "$1"},
	{regexp.MustCompile(`~~([^\n~]+)~~`), "$1"},
	{regexp.MustCompile(`\*([^\n*]+)\*`), "$1"},
	{regexp.MustCompile(`\b_([^\n_]+)_\b`), "$1"},
	{regexp.MustCompile("`([^`\n]+)`"), "$1"},
	{regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`(?m)^\s{0,3}\[[^\]]+\]:\s*\S+.*$`), ""},
	{regexp.MustCompile(`\[\^[^\]]+\]`), ""},
	{regexp.MustCompile(`<[^>\n]+>`), ""},
	{regexp.MustCompile(`(?m)^\s*>\s?`), ""},
	{regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`), ""},
	{regexp.MustCompile(`(?m)^\s*([*+-]|\d+[.)])\s+`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// Plain strips Markdown markup so text reads naturally when spoken: link
// and image text survive, code blocks and markers do not.
func Plain(markdown string) string {
	out := markdown
	for _, rw := range markdownRewrites {
		out = rw.re.ReplaceAllString(out, rw.repl)
	}
	return out
}
