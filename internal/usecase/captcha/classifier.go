package captcha

import (
	"regexp"
	"strings"

	"removal-agent/internal/domain/entity"
	"removal-agent/internal/usecase/extraction"

	"github.com/PuerkitoBio/goquery"
)

var (
	recaptchaLoaderPattern = regexp.MustCompile(`recaptcha/api\.js`)
	canvasTextPattern      = regexp.MustCompile(`(?i)grid|canvas|click[- ]?captcha|rotate`)
	questionPattern        = regexp.MustCompile(`(?i)(type the text|enter the answer|what day|solve|question)`)
)

// Rule reports a descriptor when its predicate holds for the page.
type Rule struct {
	Name  string
	Match func(page *Page) (entity.CaptchaDescriptor, bool)
}

// Page is the parsed markup a rule inspects.
type Page struct {
	Doc  *goquery.Document
	text string
}

func (p *Page) Text() string {
	if p.text == "" && len(p.Doc.Nodes) > 0 {
		p.text = extraction.NodeText(p.Doc.Nodes[0])
	}
	return p.text
}

// DefaultRules is evaluated top to bottom and the first match wins. Several
// providers share signals, so the order is part of the contract.
var DefaultRules = []Rule{
	{Name: "recaptcha", Match: matchRecaptcha},
	scriptDomainRule("funcaptcha", "funcaptcha.com", entity.CaptchaFunCaptcha),
	scriptDomainRule("geetest", "geetest.com", entity.CaptchaGeeTest),
	scriptDomainRule("keycaptcha", "keycaptcha.com", entity.CaptchaKeyCaptcha),
	scriptDomainRule("capy", "api.capy.me", entity.CaptchaCapy),
	{Name: "canvas", Match: matchCanvas},
	{Name: "image", Match: matchImage},
	{Name: "question", Match: matchQuestion},
}

type Classifier struct {
	rules []Rule
}

func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify has no side effects. Markup that cannot be parsed or matches no
// rule yields CaptchaNone.
func (c *Classifier) Classify(rawHTML string) entity.CaptchaDescriptor {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return entity.CaptchaDescriptor{Kind: entity.CaptchaNone}
	}

	page := &Page{Doc: doc}
	for _, rule := range c.rules {
		if d, ok := rule.Match(page); ok {
			return d
		}
	}
	return entity.CaptchaDescriptor{Kind: entity.CaptchaNone}
}

func matchRecaptcha(page *Page) (entity.CaptchaDescriptor, bool) {
	container := page.Doc.Find(".g-recaptcha").First()

	var loader *goquery.Selection
	page.Doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if recaptchaLoaderPattern.MatchString(s.AttrOr("src", "")) {
			loader = s
			return false
		}
		return true
	})

	if container.Length() == 0 && loader == nil {
		return entity.CaptchaDescriptor{}, false
	}

	siteKey := container.AttrOr("data-sitekey", "")
	if siteKey == "" {
		siteKey = page.Doc.Find("[data-sitekey]").First().AttrOr("data-sitekey", "")
	}

	kind := entity.CaptchaRecaptchaV2
	if loader != nil && strings.Contains(loader.AttrOr("src", ""), "v3") {
		kind = entity.CaptchaRecaptchaV3
	}
	page.Doc.Find("script:not([src])").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "grecaptcha.execute") {
			kind = entity.CaptchaRecaptchaV3
			return false
		}
		return true
	})

	return entity.CaptchaDescriptor{Kind: kind, SiteKey: siteKey}, true
}

func scriptDomainRule(name, domain string, kind entity.CaptchaKind) Rule {
	return Rule{
		Name: name,
		Match: func(page *Page) (entity.CaptchaDescriptor, bool) {
			found := false
			page.Doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				found = strings.Contains(s.AttrOr("src", ""), domain)
				return !found
			})
			return entity.CaptchaDescriptor{Kind: kind}, found
		},
	}
}

func matchCanvas(page *Page) (entity.CaptchaDescriptor, bool) {
	if page.Doc.Find("canvas").Length() > 0 || canvasTextPattern.MatchString(page.Text()) {
		return entity.CaptchaDescriptor{Kind: entity.CaptchaCanvasLike}, true
	}
	return entity.CaptchaDescriptor{}, false
}

func matchImage(page *Page) (entity.CaptchaDescriptor, bool) {
	var src string
	found := false
	page.Doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src = s.AttrOr("src", "")
		found = strings.Contains(strings.ToLower(src+s.AttrOr("alt", "")), "captcha")
		return !found
	})
	if !found {
		return entity.CaptchaDescriptor{}, false
	}
	return entity.CaptchaDescriptor{Kind: entity.CaptchaNormalImage, ImageSrc: src}, true
}

func matchQuestion(page *Page) (entity.CaptchaDescriptor, bool) {
	var question string
	page.Doc.Find("label, span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := extraction.NodeText(s.Nodes[0])
		if questionPattern.MatchString(text) {
			question = text
			return false
		}
		return true
	})
	if question == "" {
		return entity.CaptchaDescriptor{}, false
	}
	return entity.CaptchaDescriptor{Kind: entity.CaptchaTextQuestion, Question: question}, true
}
