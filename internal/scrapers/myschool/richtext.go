package myschool

import (
	"net/url"
	"regexp"
	"strings"

	"pastquestions-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const imageStyle = "max-width: 100%; height: auto; display: block; margin: 10px 0;"

// Fragment is a piece of source content that can be turned into rich text,
// it is either RawText or DomNode.
type Fragment interface {
	// markup renders the fragment into markup that still needs text cleanup.
	markup(base *url.URL) string
}

// RawText is a fragment that is already a string (possibly containing markup).
type RawText string

func (t RawText) markup(*url.URL) string {
	return string(t)
}

// DomNode is a fragment backed by parsed html, only the contents of each node
// are rendered, not the node's own tag. The nodes are never modified.
type DomNode struct {
	Nodes []*html.Node
}

// Dom wraps a goquery selection as a fragment.
func Dom(sel *goquery.Selection) DomNode {
	return DomNode{Nodes: sel.Nodes}
}

func (d DomNode) markup(base *url.URL) string {
	var out strings.Builder
	for _, n := range d.Nodes {
		if n.Type == html.TextNode {
			out.WriteString(escapeText(n.Data))
			continue
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			writeNode(&out, child, base)
		}
	}
	return out.String()
}

var keptTags = map[string]bool{
	"b":      true,
	"strong": true,
	"i":      true,
	"em":     true,
	"u":      true,
	"br":     true,
	"sub":    true,
	"sup":    true,
	"img":    true,
}

var voidTags = map[string]bool{
	"br":  true,
	"img": true,
}

var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func writeNode(out *strings.Builder, n *html.Node, base *url.URL) {
	switch n.Type {
	case html.TextNode:
		out.WriteString(escapeText(n.Data))
		return
	case html.ElementNode:
	case html.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			writeNode(out, child, base)
		}
		return
	default:
		return
	}

	if droppedTags[n.Data] {
		return
	}
	if !keptTags[n.Data] {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			writeNode(out, child, base)
		}
		return
	}

	out.WriteByte('<')
	out.WriteString(n.Data)
	if n.Data == "img" {
		writeImageAttrs(out, n, base)
	} else {
		for _, a := range n.Attr {
			writeAttr(out, a.Key, a.Val)
		}
	}
	out.WriteByte('>')
	if voidTags[n.Data] {
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		writeNode(out, child, base)
	}
	out.WriteString("</")
	out.WriteString(n.Data)
	out.WriteByte('>')
}

func writeImageAttrs(out *strings.Builder, n *html.Node, base *url.URL) {
	for _, a := range n.Attr {
		switch a.Key {
		case "style":
		case "src":
			writeAttr(out, "src", htmlutil.AbsoluteURL(base, a.Val))
		default:
			writeAttr(out, a.Key, a.Val)
		}
	}
	writeAttr(out, "style", imageStyle)
}

func writeAttr(out *strings.Builder, key, val string) {
	out.WriteByte(' ')
	out.WriteString(key)
	out.WriteString(`="`)
	out.WriteString(html.EscapeString(val))
	out.WriteByte('"')
}

// languageSubjects skip the science rewrite, tokens like "A1" are not formulas there.
var languageSubjects = []string{
	"english",
	"literature",
	"french",
	"yoruba",
	"igbo",
	"hausa",
	"arabic",
}

// IsLanguageSubject reports whether `hint` (a subject name, slug or url) names a language subject.
func IsLanguageSubject(hint string) bool {
	hint = strings.ToLower(hint)
	for _, s := range languageSubjects {
		if strings.Contains(hint, s) {
			return true
		}
	}
	return false
}

var encodingReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"&nbsp;", " ",
	"\ufffd", "'",
)

var delimiterReplacer = strings.NewReplacer(
	`\(`, "",
	`\)`, "",
	`\[`, "",
	`\]`, "",
)

var symbolReplacer = strings.NewReplacer(
	`\to`, "→",
	`\uparrow`, "↑",
	`\downarrow`, "↓",
	`\lambda`, "λ",
	`\theta`, "θ",
	`\times`, "×",
	`\div`, "÷",
)

var (
	tagRegex = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)

	bracedSubRegex = regexp.MustCompile(`\\?_\{([^}]+)\}`)
	digitSubRegex  = regexp.MustCompile(`_(\d)`)
	bracedSupRegex = regexp.MustCompile(`\\?\^\{([^}]+)\}`)
	digitSupRegex  = regexp.MustCompile(`\^(\d)`)
	chemicalRegex  = regexp.MustCompile(`([A-Z][a-z]?)([2-9])`)
	electronRegex  = regexp.MustCompile(`\b([1-7][spdf])(\d{1,2})\b`)
	fractionRegex  = regexp.MustCompile(`\\frac\{([^}]+)\}\{([^}]+)\}`)
)

// Normalizer turns fragments of myschool pages into rich text, relative image
// links are resolved against BaseURL.
type Normalizer struct {
	BaseURL *url.URL
}

func NewNormalizer(baseUrl *url.URL) Normalizer {
	return Normalizer{BaseURL: baseUrl}
}

// Normalize renders `fragment` into rich text. Scientific notation is rewritten
// into sub/sup markup unless `subjectHint` names a language subject.
func (n Normalizer) Normalize(fragment Fragment, subjectHint string) string {
	if fragment == nil {
		return ""
	}
	text := fragment.markup(n.BaseURL)
	if text == "" {
		return ""
	}

	text = encodingReplacer.Replace(text)
	text = delimiterReplacer.Replace(text)
	if !IsLanguageSubject(subjectHint) {
		text = rewriteTextSegments(text, rewriteScience)
	}
	return strings.TrimSpace(text)
}

// rewriteTextSegments applies `rewrite` to the text between tags, tags are copied verbatim.
func rewriteTextSegments(text string, rewrite func(string) string) string {
	tags := tagRegex.FindAllStringIndex(text, -1)
	if len(tags) == 0 {
		return rewrite(text)
	}

	var out strings.Builder
	last := 0
	for _, loc := range tags {
		out.WriteString(rewrite(text[last:loc[0]]))
		out.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	out.WriteString(rewrite(text[last:]))
	return out.String()
}

func rewriteScience(text string) string {
	if text == "" {
		return text
	}
	text = bracedSubRegex.ReplaceAllString(text, "<sub>$1</sub>")
	text = digitSubRegex.ReplaceAllString(text, "<sub>$1</sub>")
	text = bracedSupRegex.ReplaceAllString(text, "<sup>$1</sup>")
	text = digitSupRegex.ReplaceAllString(text, "<sup>$1</sup>")
	text = symbolReplacer.Replace(text)
	text = subscriptChemicals(text)
	text = electronRegex.ReplaceAllString(text, "$1<sup>$2</sup>")
	text = fractionRegex.ReplaceAllString(text, "<sup>$1</sup>&frasl;<sub>$2</sub>")
	return text
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// subscriptChemicals turns tokens like CO2 into CO<sub>2</sub>, a token that is
// directly followed by a letter (H2O, A2B) is left alone.
func subscriptChemicals(text string) string {
	var out strings.Builder
	pos := 0
	for pos < len(text) {
		loc := chemicalRegex.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end < len(text) && isASCIILetter(text[end]) {
			out.WriteString(text[pos : start+1])
			pos = start + 1
			continue
		}
		out.WriteString(text[pos:start])
		out.WriteString(text[pos+loc[2] : pos+loc[3]])
		out.WriteString("<sub>")
		out.WriteString(text[pos+loc[4] : pos+loc[5]])
		out.WriteString("</sub>")
		pos = end
	}
	out.WriteString(text[pos:])
	return out.String()
}
