package webdriver

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is one node of a UiAutomator2 page source.
type Element struct {
	Depth       int
	Class       string
	ResourceID  string
	Text        string
	ContentDesc string
	Bounds      string
}

// Labelled reports whether the element carries anything a locator can use.
func (e Element) Labelled() bool {
	return e.ResourceID != "" || e.Text != "" || e.ContentDesc != ""
}

var selfClosing = regexp.MustCompile(`<([A-Za-z][\w.$]*)(\s[^<>]*?)?/>`)

// Inspect flattens a page source into its elements in document order.
func Inspect(source string) ([]Element, error) {
	// The HTML parser ignores self-closing syntax on unknown elements, which
	// would nest every leaf into its previous sibling.
	source = selfClosing.ReplaceAllString(source, "<$1$2></$1>")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, err
	}

	var elements []Element
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		class := s.AttrOr("class", "")
		if class == "" {
			class = goquery.NodeName(s)
		}
		elements = append(elements, Element{
			// html and body are always ancestors.
			Depth:       s.Parents().Length() - 2,
			Class:       class,
			ResourceID:  s.AttrOr("resource-id", ""),
			Text:        s.AttrOr("text", ""),
			ContentDesc: s.AttrOr("content-desc", ""),
			Bounds:      s.AttrOr("bounds", ""),
		})
	})
	return elements, nil
}
