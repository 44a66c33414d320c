package extraction

import (
	"fmt"
	"strings"

	"removal-agent/internal/domain/entity"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxFallbackSelectorLen = 80
	maxFormTextLen         = 100
)

var DefaultKeywords = []string{
	"remove", "removal", "do not use", "opt out", "delete", "privacy", "do not sell", "unsubscribe",
}

type Extractor struct {
	keywords []string
}

func NewExtractor(keywords ...string) *Extractor {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		lowered = append(lowered, strings.ToLower(kw))
	}
	return &Extractor{keywords: lowered}
}

// Extract returns removal candidates in document order: interactive elements
// first, then forms. An empty result is not an error.
func (e *Extractor) Extract(rawHTML string) ([]entity.RemovalCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var candidates []entity.RemovalCandidate

	doc.Find("a, button, input").Each(func(_ int, s *goquery.Selection) {
		value, _ := s.Attr("value")
		text := strings.TrimSpace(strings.TrimSpace(s.Text()) + " " + value)
		if !e.matches(text) {
			return
		}
		candidates = append(candidates, entity.RemovalCandidate{
			Text:        text,
			ElementType: elementType(s),
			Selector:    elementSelector(s),
		})
	})

	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		text := NodeText(s.Nodes[0])
		if !e.matches(text) {
			return
		}
		candidates = append(candidates, entity.RemovalCandidate{
			Text:        truncate(text, maxFormTextLen),
			ElementType: entity.ElementForm,
			Selector:    formSelector(s),
		})
	})

	return candidates, nil
}

func (e *Extractor) matches(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func elementType(s *goquery.Selection) entity.ElementType {
	switch goquery.NodeName(s) {
	case "a":
		return entity.ElementLink
	case "button":
		return entity.ElementButton
	default:
		return entity.ElementInput
	}
}

func elementSelector(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "a":
		if href, ok := s.Attr("href"); ok && href != "" {
			return fmt.Sprintf("a[href='%s']", href)
		}
	case "button":
		if id, ok := s.Attr("id"); ok && id != "" {
			return "button#" + id
		}
	case "input":
		if name, ok := s.Attr("name"); ok && name != "" {
			return fmt.Sprintf("input[name='%s']", name)
		}
	}

	raw, err := goquery.OuterHtml(s)
	if err != nil {
		raw = renderNode(s.Nodes[0])
	}
	return truncate(raw, maxFallbackSelectorLen)
}

func formSelector(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return fmt.Sprintf("form[id=%q]", id)
	}
	return "form"
}
