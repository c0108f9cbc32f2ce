package myschool

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"pastquestions-backend/internal/assert"
	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/questions"
	"pastquestions-backend/pkg/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	report_extractor_exam_year = "extractor.exam-year"
)

var optionLetters = []string{"A", "B", "C", "D", "E"}

var (
	answerRegex          = regexp.MustCompile(`Correct Answer:\s*Option\s*([A-Za-z])\b`)
	explanationRegex     = regexp.MustCompile(`(?i)explanation`)
	trailingEllipsis     = regexp.MustCompile(`\.{3,}$`)
	leadingPunctuation   = regexp.MustCompile(`^[\s.]+`)
	optionEndMarkerRegex = regexp.MustCompile(`Contribution|Quick Question|Sign In`)
)

// boilerplate is short text left behind by the site's answer/video widgets.
var boilerplate = []string{
	"explanation_video",
	"[below]",
	"view answer",
}

const boilerplateMaxLength = 60

type ExtractOptions struct {
	// Subject is stamped onto the record, when empty it is derived from the url.
	Subject string
	// SubjectHint decides whether science rewriting applies, it defaults to Subject.
	SubjectHint string
	// ForceType overrides option count based classification.
	ForceType string
}

// Extractor turns a question detail page into a Question.
type Extractor struct {
	normalizer Normalizer
	time       chrono.TimeAPI
	tel        telemetry.API
}

func NewExtractor(normalizer Normalizer, time chrono.TimeAPI, tel telemetry.API) Extractor {
	assert.NotNil(time, "time")
	assert.NotNil(tel, "telemetry")
	return Extractor{
		normalizer: normalizer,
		time:       time,
		tel:        tel,
	}
}

type pageMetadata struct {
	answer   string
	topic    string
	examType string
	year     *int
}

// SubjectFromURL returns the subject slug of a /classroom/<subject>/... url.
func SubjectFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "classroom" {
		return ""
	}
	switch segments[1] {
	case "questions", "topic":
		return ""
	}
	return segments[1]
}

func (e Extractor) metadata(doc *goquery.Document, sourceUrl string) (pageMetadata, bool) {
	meta := pageMetadata{
		topic:    questions.DefaultTopic,
		examType: questions.DefaultExamType,
	}

	groups := answerRegex.FindStringSubmatch(doc.Text())
	if len(groups) == 2 {
		meta.answer = strings.ToUpper(groups[1])
	}

	topic := textutil.CollapseWhitespace(doc.Find(`a[href*="/classroom/topic/"]`).First().Text())
	if topic != "" {
		meta.topic = topic
	}

	href, ok := doc.Find(`a[href*="exam_type="]`).First().Attr("href")
	if !ok {
		return meta, true
	}
	link, err := url.Parse(href)
	if err != nil {
		e.tel.ReportWarning(report_extractor_exam_year, fmt.Errorf("parse exam link: %w", err), sourceUrl)
		return meta, true
	}
	query := link.Query()
	if examType := strings.ToLower(strings.TrimSpace(query.Get("exam_type"))); examType != "" {
		meta.examType = examType
	}
	rawYear := strings.TrimSpace(query.Get("exam_year"))
	if rawYear == "" {
		return meta, true
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil {
		e.tel.ReportWarning(report_extractor_exam_year, fmt.Errorf("unparseable exam year '%s'", rawYear), sourceUrl)
		return meta, false
	}
	if !questions.YearInRange(year, chrono.CurrentYear(e.time)) {
		e.tel.ReportWarning(report_extractor_exam_year, fmt.Errorf("exam year %d out of range", year), sourceUrl)
		return meta, false
	}
	meta.year = &year
	return meta, true
}

func isBoilerplate(text string) bool {
	if len(text) >= boilerplateMaxLength {
		return false
	}
	lowered := strings.ToLower(text)
	for _, b := range boilerplate {
		if strings.Contains(lowered, b) {
			return true
		}
	}
	return false
}

func blankBoilerplate(n *html.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			if isBoilerplate(child.Data) {
				child.Data = ""
			}
			continue
		}
		blankBoilerplate(child)
	}
}

func (e Extractor) body(doc *goquery.Document, hint string) string {
	container := doc.Find("div.question-desc").First()
	if container.Length() > 0 {
		body := container.Clone()
		body.Find("a, .badge").Remove()
		for _, n := range body.Nodes {
			blankBoilerplate(n)
		}
		return e.normalizer.Normalize(Dom(body), hint)
	}

	heading := doc.Find("h3").First()
	if heading.Length() == 0 {
		return ""
	}
	text := e.normalizer.Normalize(Dom(heading), hint)
	return strings.TrimSpace(trailingEllipsis.ReplaceAllString(text, ""))
}

func optionItems(doc *goquery.Document) []*goquery.Selection {
	var items []*goquery.Selection

	list := doc.Find("ul.list-unstyled").First()
	if list.Length() > 0 {
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			items = append(items, li)
		})
		return items
	}

	foundTitle := false
	doc.Find("h3, li, h4, h5").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		name := goquery.NodeName(item)
		if name == "h3" && item.HasClass("page-title") {
			foundTitle = true
			return true
		}
		if !foundTitle {
			return true
		}
		if (name == "h4" || name == "h5") && optionEndMarkerRegex.MatchString(item.Text()) {
			return false
		}
		if name == "li" {
			items = append(items, item)
		}
		return true
	})
	return items
}

// labelled reports whether `text` starts with `letter` followed by '.', ' ' or ')'
// and has something after the label.
func labelled(text, letter string) bool {
	if len(text) < 3 || !strings.EqualFold(text[:1], letter) {
		return false
	}
	switch text[1] {
	case '.', ' ', ')':
	default:
		return false
	}
	return strings.TrimSpace(text[2:]) != ""
}

func isLabelOnly(text, letter string) bool {
	text = strings.TrimSpace(text)
	if !strings.EqualFold(text[:min(1, len(text))], letter) {
		return false
	}
	rest := strings.TrimSpace(text[1:])
	return rest == "" || rest == "." || rest == ")"
}

func letterPrefix(letter string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^` + letter + `[.\s)]\s*`)
}

var letterPrefixes = func() map[string]*regexp.Regexp {
	out := map[string]*regexp.Regexp{}
	for _, l := range optionLetters {
		out[l] = letterPrefix(l)
	}
	return out
}()

func (e Extractor) option(item *goquery.Selection, letter, hint string) string {
	clone := item.Clone()
	label := clone.Find("strong, b").First()
	strippedLabel := false
	if label.Length() > 0 && isLabelOnly(label.Text(), letter) {
		label.Remove()
		strippedLabel = true
	}

	text := e.normalizer.Normalize(Dom(clone), hint)
	if !strippedLabel {
		text = letterPrefixes[letter].ReplaceAllString(text, "")
	}
	text = leadingPunctuation.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func (e Extractor) options(doc *goquery.Document, year *int, hint string) []string {
	items := optionItems(doc)
	used := make([]bool, len(items))

	var options []string
	for _, letter := range optionLetters {
		found := false
		for i, item := range items {
			if used[i] {
				continue
			}
			if !labelled(textutil.CollapseWhitespace(item.Text()), letter) {
				continue
			}
			used[i] = true
			options = append(options, e.option(item, letter, hint))
			found = true
			break
		}
		if found {
			continue
		}
		// exams before 2000 had five options, later ones only four
		if letter == "E" && (year == nil || *year >= 2000) {
			continue
		}
		options = append(options, "")
	}
	return options
}

// nextInDocument returns the node following `n`'s subtree in document order.
func nextInDocument(n *html.Node) *html.Node {
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

func firstElement(start *html.Node, names ...string) *html.Node {
	for n := start; n != nil; {
		if n.Type == html.ElementNode {
			for _, name := range names {
				if n.Data == name {
					return n
				}
			}
		}
		if n.FirstChild != nil {
			n = n.FirstChild
			continue
		}
		n = nextInDocument(n)
	}
	return nil
}

func (e Extractor) explanation(doc *goquery.Document, hint string) string {
	heading := doc.Find("h5").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return explanationRegex.MatchString(s.Text())
	}).First()
	if heading.Length() == 0 {
		return ""
	}

	node := heading.Nodes[0]
	container := firstElement(nextInDocument(node), "div", "p")
	if container != nil {
		return e.normalizer.Normalize(DomNode{Nodes: []*html.Node{container}}, hint)
	}
	if node.NextSibling != nil {
		return e.normalizer.Normalize(DomNode{Nodes: []*html.Node{node.NextSibling}}, hint)
	}
	return ""
}

// Extract builds a Question from a detail page. It returns nil when the page
// has no question body or carries malformed metadata.
func (e Extractor) Extract(doc *goquery.Document, sourceUrl string, opts ExtractOptions) *questions.Question {
	if doc == nil {
		return nil
	}

	subject := opts.Subject
	if subject == "" {
		subject = SubjectFromURL(sourceUrl)
	}
	hint := opts.SubjectHint
	if hint == "" {
		hint = subject
	}
	if hint == "" {
		hint = sourceUrl
	}

	meta, ok := e.metadata(doc, sourceUrl)
	if !ok {
		return nil
	}

	body := e.body(doc, hint)
	if body == "" {
		e.tel.ReportDebug("extractor: no body", sourceUrl)
		return nil
	}

	options := e.options(doc, meta.year, hint)
	qtype := opts.ForceType
	if qtype != "" {
		qtype = questions.NormalizeQuestionType(qtype)
	} else {
		nonEmpty := 0
		for _, o := range options {
			if strings.TrimSpace(o) != "" {
				nonEmpty++
			}
		}
		qtype = questions.TypeTheory
		if nonEmpty >= 2 {
			qtype = questions.TypeObjective
		}
	}
	if qtype != questions.TypeObjective {
		options = []string{}
	}

	return &questions.Question{
		Body:         body,
		Options:      options,
		Answer:       meta.answer,
		Explanation:  e.explanation(doc, hint),
		Subject:      subject,
		Topic:        meta.topic,
		Year:         meta.year,
		ExamType:     meta.examType,
		QuestionType: qtype,
		SourceURL:    sourceUrl,
	}
}
