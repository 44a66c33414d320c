package extraction

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"removal-agent/internal/domain/entity"

	"github.com/PuerkitoBio/goquery"
)

var (
	removalPathPattern = regexp.MustCompile(`(?i)(opt[- ]?out|remove|do not sell|privacy|delete)`)
	emailPattern       = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`)
)

// FindRemovalPath scans the raw markup for removal wording and returns the
// first matching token.
func FindRemovalPath(rawHTML string) (string, bool) {
	match := removalPathPattern.FindString(rawHTML)
	return match, match != ""
}

// FindEmail returns the first address in the visible page text, falling back
// to mailto links.
func FindEmail(rawHTML string) string {
	if addr := emailPattern.FindString(VisibleText(rawHTML)); addr != "" {
		return addr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href^='mailto:']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		found = emailPattern.FindString(strings.TrimPrefix(href, "mailto:"))
		return found == ""
	})
	return found
}

// FindForm captures the first form on the page, or nil when there is none.
func FindForm(rawHTML, pageURL string) (*entity.DiscoveredForm, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	sel := doc.Find("form").First()
	if sel.Length() == 0 {
		return nil, nil
	}

	markup, err := goquery.OuterHtml(sel)
	if err != nil {
		markup = renderNode(sel.Nodes[0])
	}

	form := &entity.DiscoveredForm{
		Selector: formSelector(sel),
		Action:   resolveAction(sel.AttrOr("action", ""), pageURL),
		Method:   strings.ToLower(strings.TrimSpace(sel.AttrOr("method", "post"))),
		HTML:     markup,
	}
	if form.Method == "" {
		form.Method = "post"
	}

	sel.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
		form.Fields = append(form.Fields, entity.FormField{
			Tag:  goquery.NodeName(field),
			Name: field.AttrOr("name", ""),
			ID:   field.AttrOr("id", ""),
			Type: strings.ToLower(field.AttrOr("type", "")),
		})
	})

	submit := sel.Find("button[type='submit']").First()
	if submit.Length() == 0 {
		submit = sel.Find("input[type='submit']").First()
	}
	if submit.Length() > 0 {
		form.Submit = &entity.SubmitControl{
			Tag:  goquery.NodeName(submit),
			Name: submit.AttrOr("name", ""),
		}
	}

	return form, nil
}

func resolveAction(action, pageURL string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return action
	}
	ref, err := url.Parse(action)
	if err != nil {
		return action
	}
	return base.ResolveReference(ref).String()
}
