package myschool

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func testNormalizer(t testing.TB) Normalizer {
	base, err := url.Parse("https://myschool.ng")
	require.NoError(t, err)
	return NewNormalizer(base)
}

func TestNormalizeRawText(t *testing.T) {
	n := testNormalizer(t)

	testCases := []struct {
		name     string
		input    string
		subject  string
		expected string
	}{
		{
			name:     "chemical formula in science",
			input:    "CO2",
			subject:  "Chemistry",
			expected: "CO<sub>2</sub>",
		},
		{
			name:     "chemical formula in english",
			input:    "CO2",
			subject:  "English",
			expected: "CO2",
		},
		{
			name:     "grade in a language subject",
			input:    "She scored B2 in French",
			subject:  "french",
			expected: "She scored B2 in French",
		},
		{
			name:     "braced subscripts",
			input:    "H_{2}SO_{4}",
			subject:  "chemistry",
			expected: "H<sub>2</sub>SO<sub>4</sub>",
		},
		{
			name:     "escaped braced superscript",
			input:    `10\^{3} and x^2`,
			subject:  "physics",
			expected: "10<sup>3</sup> and x<sup>2</sup>",
		},
		{
			name:     "symbols and digit subscripts",
			input:    `2H_2 + O_2 \to 2H_2O`,
			subject:  "chemistry",
			expected: "2H<sub>2</sub> + O<sub>2</sub> → 2H<sub>2</sub>O",
		},
		{
			name:     "symbol table",
			input:    `\lambda \theta 2 \times 3 \div 4 \uparrow \downarrow`,
			subject:  "physics",
			expected: "λ θ 2 × 3 ÷ 4 ↑ ↓",
		},
		{
			name:     "formula followed by a letter",
			input:    "H2O",
			subject:  "chemistry",
			expected: "H2O",
		},
		{
			name:     "electron configuration",
			input:    "1s2 2s2 2p6",
			subject:  "chemistry",
			expected: "1s<sup>2</sup> 2s<sup>2</sup> 2p<sup>6</sup>",
		},
		{
			name:     "fraction",
			input:    `\frac{1}{2} of the mass`,
			subject:  "mathematics",
			expected: "<sup>1</sup>&frasl;<sub>2</sub> of the mass",
		},
		{
			name:     "latex delimiters",
			input:    `\(CO2\) and \[x\]`,
			subject:  "chemistry",
			expected: "CO<sub>2</sub> and x",
		},
		{
			name:     "encoding artifacts",
			input:    "  don\ufffdt stop&nbsp;now\u00a0 ",
			subject:  "english",
			expected: "don't stop now",
		},
		{
			name:     "existing tags are not rewritten",
			input:    `<img src="https://myschool.ng/H2O_2.png"> CO2`,
			subject:  "chemistry",
			expected: `<img src="https://myschool.ng/H2O_2.png"> CO<sub>2</sub>`,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, n.Normalize(RawText(test.input), test.subject))
		})
	}
}

func TestNormalizeDomNode(t *testing.T) {
	n := testNormalizer(t)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<p>Water is H<sub>2</sub>O <span class="x">and</span> <img src="/img/a.png" style="width: 900px"> <script>alert(1)</script><a href="#">a &lt; b &amp; c</a></p>`,
	))
	require.NoError(t, err)

	p := doc.Find("p")
	out := n.Normalize(Dom(p), "chemistry")
	require.Equal(
		t,
		`Water is H<sub>2</sub>O and <img src="https://myschool.ng/img/a.png" style="max-width: 100%; height: auto; display: block; margin: 10px 0;"> a &lt; b &amp; c`,
		out,
	)

	// the caller's nodes are left alone
	require.Equal(t, 1, doc.Find("script").Length())
	src, _ := doc.Find("img").Attr("src")
	require.Equal(t, "/img/a.png", src)
}

func TestNormalizeTextNode(t *testing.T) {
	n := testNormalizer(t)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div><h5>Explanation</h5>CO2 is a gas.</div>`))
	require.NoError(t, err)

	text := doc.Find("h5").Nodes[0].NextSibling
	require.Equal(t, "CO<sub>2</sub> is a gas.", n.Normalize(DomNode{Nodes: []*html.Node{text}}, "chemistry"))
}

func TestNormalizeIdempotent(t *testing.T) {
	n := testNormalizer(t)

	inputs := []struct {
		text    string
		subject string
	}{
		{text: "CO2 and SO3", subject: "chemistry"},
		{text: "H_{2}SO_{4} + 2NaOH", subject: "chemistry"},
		{text: `2H_2 + O_2 \to 2H_2O`, subject: "chemistry"},
		{text: "1s2 2s2 2p6 3s1", subject: "chemistry"},
		{text: `\frac{3}{4} \times 8`, subject: "mathematics"},
		{text: "Choose the word nearest in meaning: B2", subject: "english"},
		{text: `<b>Bold</b> E = mc^2 <img src="/x.png">`, subject: "physics"},
	}

	for _, input := range inputs {
		once := n.Normalize(RawText(input.text), input.subject)
		twice := n.Normalize(RawText(once), input.subject)
		require.Equal(t, once, twice, input.text)
	}
}

func TestIsLanguageSubject(t *testing.T) {
	require.True(t, IsLanguageSubject("English Language"))
	require.True(t, IsLanguageSubject("https://myschool.ng/classroom/literature-in-english/1"))
	require.True(t, IsLanguageSubject("yoruba"))
	require.False(t, IsLanguageSubject("chemistry"))
	require.False(t, IsLanguageSubject(""))
}
