package extract

import (
	"regexp"
	"strings"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Markup patterns exclude '<' and '>' so a substitution never spans a tag
// produced by an earlier step, including the <br> that replaces a newline.
var (
	boldPattern   = regexp.MustCompile(`\*\*([^<>]+?)\*\*`)
	italicPattern = regexp.MustCompile(`\*([^*<>]+)\*`)
	codePattern   = regexp.MustCompile("`([^`<>]+)`")
)

// FormatText converts free text into an HTML fragment: metacharacters are
// escaped, newlines become <br>, and **bold**, *italic* and `code` spans
// become strong, em and code elements. Code spans are taken first and their
// contents are left literal.
func FormatText(text string) string {
	out := htmlEscaper.Replace(text)
	out = strings.ReplaceAll(out, "\n", "<br>")

	var b strings.Builder
	last := 0
	for _, m := range codePattern.FindAllStringSubmatchIndex(out, -1) {
		b.WriteString(emphasize(out[last:m[0]]))
		b.WriteString("<code>" + out[m[2]:m[3]] + "</code>")
		last = m[1]
	}
	b.WriteString(emphasize(out[last:]))
	return b.String()
}

func emphasize(text string) string {
	text = boldPattern.ReplaceAllString(text, "<strong>$1</strong>")
	return italicPattern.ReplaceAllString(text, "<em>$1</em>")
}

var jsonTokenPattern = regexp.MustCompile(`"(?:\\u[a-fA-F0-9]{4}|\\[^u]|[^\\"])*"(?:\s*:)?|\b(?:true|false|null)\b|-?\d+(?:\.\d*)?(?:[eE][+\-]?\d+)?`)

// HighlightJSON wraps the tokens of a JSON text in spans classed json-key,
// json-string, json-number, json-boolean or json-null. A string directly
// followed by a colon is a key. The text is HTML-escaped first.
func HighlightJSON(text string) string {
	escaped := htmlEscaper.Replace(text)
	return jsonTokenPattern.ReplaceAllStringFunc(escaped, func(token string) string {
		switch {
		case strings.HasPrefix(token, `"`):
			if strings.HasSuffix(token, ":") {
				end := strings.LastIndex(token, `"`) + 1
				return span("json-key", token[:end]) + token[end:]
			}
			return span("json-string", token)
		case token == "true" || token == "false":
			return span("json-boolean", token)
		case token == "null":
			return span("json-null", token)
		default:
			return span("json-number", token)
		}
	})
}

func span(class, text string) string {
	return `<span class="` + class + `">` + text + `</span>`
}
