// Package detector identifies which website platform a dealership site runs
// on, from rendered homepage HTML alone.
package detector

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealerscout/internal/domain"
	"dealerscout/internal/platform"
)

// Detection methods, strongest first.
const (
	MethodMetaGenerator = "meta_generator"
	MethodAssetURL      = "asset_url"
	MethodCMSPattern    = "cms_pattern"
	MethodNone          = "none"
)

type cmsPattern struct {
	name    string
	regexes []*regexp.Regexp
}

var cmsPatterns = []cmsPattern{
	{"WordPress", compileAll(`wp-content`, `wp-includes`, `wordpress`)},
	{"Drupal", compileAll(`drupal\.js`, `/sites/default/files`)},
	{"Squarespace", compileAll(`squarespace\.com`, `sqsp\.com`)},
	{"Wix", compileAll(`wix\.com`, `parastorage\.com`)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Detect inspects homepage HTML and returns the platform with a confidence
// reflecting the strength of the evidence: meta generator (0.95), body
// signature (0.85), script/link asset URL (0.75), generic CMS pattern (0.70),
// otherwise Custom/Unknown with 0.
func Detect(html string) domain.DetectionResult {
	htmlLower := strings.ToLower(html)
	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))

	if docErr == nil {
		if name := checkMetaGenerator(doc); name != "" {
			return domain.DetectionResult{Platform: name, Confidence: 0.95, Method: MethodMetaGenerator}
		}
	}

	for _, p := range platform.All() {
		for _, sig := range p.Signatures {
			if strings.Contains(htmlLower, strings.ToLower(sig)) {
				return domain.DetectionResult{Platform: p.Name, Confidence: 0.85, Method: "signature:" + sig}
			}
		}
	}

	if docErr == nil {
		if name := checkAssetURLs(doc); name != "" {
			return domain.DetectionResult{Platform: name, Confidence: 0.75, Method: MethodAssetURL}
		}
	}

	if name := checkCMSPatterns(htmlLower); name != "" {
		return domain.DetectionResult{Platform: name, Confidence: 0.70, Method: MethodCMSPattern}
	}

	return domain.DetectionResult{Platform: platform.Unknown, Confidence: 0, Method: MethodNone}
}

func checkMetaGenerator(doc *goquery.Document) string {
	content, ok := doc.Find(`meta[name="generator"]`).First().Attr("content")
	if !ok || content == "" {
		return ""
	}
	content = strings.ToLower(content)
	for _, p := range platform.All() {
		if strings.Contains(content, strings.ToLower(p.Name)) {
			return p.Name
		}
	}
	if strings.Contains(content, "wordpress") {
		return "WordPress"
	}
	if strings.Contains(content, "drupal") {
		return "Drupal"
	}
	return ""
}

func checkAssetURLs(doc *goquery.Document) string {
	var urls []string
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			urls = append(urls, strings.ToLower(src))
		}
	})
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			urls = append(urls, strings.ToLower(href))
		}
	})
	joined := strings.Join(urls, " ")

	for _, p := range platform.All() {
		for _, sig := range p.Signatures {
			if strings.Contains(joined, strings.ToLower(sig)) {
				return p.Name
			}
		}
	}
	return ""
}

func checkCMSPatterns(htmlLower string) string {
	for _, cms := range cmsPatterns {
		for _, re := range cms.regexes {
			if re.MatchString(htmlLower) {
				return cms.name
			}
		}
	}
	return ""
}
