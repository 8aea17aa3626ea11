// Package extractor pulls structured contacts out of rendered staff-page
// HTML. Extraction is tiered: platform-specific selectors, then generic
// card-shaped markup, then a flat scan of the raw document. It never fails;
// the worst case is an empty list.
package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"dealerscout/internal/domain"
	"dealerscout/internal/platform"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// "name [at] domain [dot] com" and similar spellings.
	obfuscatedEmailRe = regexp.MustCompile(
		`(?i)([a-zA-Z0-9._%+\-]+)\s*[\[\(]?\s*(?:at)\s*[\]\)]?\s*` +
			`([a-zA-Z0-9.\-]+)\s*[\[\(]?\s*(?:dot)\s*[\]\)]?\s*` +
			`([a-zA-Z]{2,})`)

	// US numbers with optional country code.
	phoneRe    = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

// Generic role-account local parts that are not a person.
var excludedLocalParts = map[string]bool{
	"noreply": true, "no-reply": true, "donotreply": true, "webmaster": true,
	"postmaster": true, "admin": true, "info": true, "support": true,
	"contact": true, "sales": true, "service": true, "help": true,
	"feedback": true, "marketing": true, "press": true, "media": true, "hr": true,
}

// Domains that show up in page source but never belong to the dealership.
var excludedEmailDomains = map[string]bool{
	"example.com": true, "test.com": true, "sentry.io": true,
	"google.com": true, "facebook.com": true, "twitter.com": true,
	"instagram.com": true, "googleapis.com": true, "gstatic.com": true,
	"cloudflare.com": true,
}

var genericCardSelectors = []string{
	"[class*='staff']",
	"[class*='team-member']",
	"[class*='employee']",
	"[class*='person']",
	"[class*='bio']",
	"[class*='profile']",
	"[class*='card'][class*='contact']",
	"[itemtype='http://schema.org/Person']",
	"[itemtype='https://schema.org/Person']",
	".vcard",
}

var genericNameSelectors = []string{
	"h2", "h3", "h4", "h5", "strong", ".name", "[class*='name']", "[itemprop='name']",
}

var genericTitleSelectors = []string{
	"[class*='title']", "[class*='position']", "[class*='role']", "[class*='job']",
	"[itemprop='jobTitle']", ".title", "p", "span",
}

var genericHeadings = map[string]bool{
	"learn more": true, "read more": true, "view profile": true,
	"contact us": true, "our team": true, "meet our team": true,
	"click here": true, "more info": true,
	"managers": true, "management": true, "sales": true,
	"sales and finance": true, "sales & finance": true, "finance": true,
	"service": true, "parts": true, "office": true, "administration": true,
	"body shop": true, "internet": true, "internet sales": true,
	"staff": true, "our staff": true, "meet our staff": true,
	"leadership": true, "team": true,
}

var titleOnlyWords = map[string]bool{
	"general": true, "manager": true, "sales": true, "service": true,
	"finance": true, "director": true, "president": true,
}

var titleKeywords = []string{
	"manager", "director", "president", "owner", "partner", "specialist",
	"advisor", "consultant", "assistant", "sales", "service", "finance",
	"parts", "general", "vp", "vice", "chief", "officer", "head",
}

// Extract parses a staff page and returns the contacts it can identify.
// profile, when non-nil, enables platform-specific selectors which are far
// more reliable than the generic tiers. baseDomain restricts extracted
// emails to the dealership's own domain.
func Extract(pageHTML, baseDomain string, profile *platform.Profile) []domain.Contact {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	if profile != nil && len(profile.CardSelectors) > 0 {
		if contacts := extractProfileContacts(doc, baseDomain, profile); len(contacts) > 0 {
			return dedupe(contacts)
		}
	}

	contacts := extractStructuredContacts(doc, baseDomain)
	if len(contacts) == 0 {
		contacts = extractFlatContacts(doc, pageHTML, baseDomain)
	}
	return dedupe(contacts)
}

func extractProfileContacts(doc *goquery.Document, baseDomain string, p *platform.Profile) []domain.Contact {
	var cards *goquery.Selection
	for _, sel := range p.CardSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var contacts []domain.Contact
	cards.Each(func(_ int, card *goquery.Selection) {
		c := parseProfileCard(card, baseDomain, p)
		if c.HasIdentity() {
			contacts = append(contacts, c)
		}
	})
	return contacts
}

func parseProfileCard(card *goquery.Selection, baseDomain string, p *platform.Profile) domain.Contact {
	c := domain.Contact{Source: domain.SourceCrawl}

	for _, sel := range p.NameSelectors {
		name := cleanText(card.Find(sel).First())
		if len(name) > 2 && len(name) < 80 && !isGenericHeading(name) && looksLikePersonName(name) {
			c.Name = name
			break
		}
	}

	for _, sel := range p.TitleSelectors {
		title := cleanText(card.Find(sel).First())
		if len(title) > 3 && len(title) < 100 && looksLikeTitle(title) {
			c.Title = title
			break
		}
	}
	// Some platforms leave the job title as a bare text node inside the card.
	if c.Title == "" {
		card.Contents().EachWithBreak(func(_ int, s *goquery.Selection) bool {
			n := s.Get(0)
			if n.Type != html.TextNode {
				return true
			}
			text := strings.TrimSpace(n.Data)
			if len(text) > 3 && len(text) < 100 && looksLikeTitle(text) {
				c.Title = text
				return false
			}
			return true
		})
	}

	for _, sel := range p.EmailSelectors {
		el := card.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if strings.HasPrefix(sel, "a[href") {
			if email, ok := mailtoAddress(el, baseDomain); ok {
				c.Email = email
				break
			}
		} else if emails := ExtractEmails(el.Text(), baseDomain); len(emails) > 0 {
			c.Email = emails[0]
			break
		}
	}
	if c.Email == "" {
		c.Email = firstMailto(card, baseDomain)
	}

	for _, sel := range p.PhoneSelectors {
		el := card.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if strings.HasPrefix(sel, "a[href") {
			if href, ok := el.Attr("href"); ok && strings.HasPrefix(href, "tel:") {
				c.Phone = strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
				break
			}
		} else if phones := ExtractPhones(el.Text()); len(phones) > 0 {
			c.Phone = phones[0]
			break
		}
	}
	if c.Phone == "" {
		c.Phone = firstTel(card)
	}

	if src, ok := card.Find("img").First().Attr("src"); ok {
		c.PhotoURL = src
	}
	return c
}

func extractStructuredContacts(doc *goquery.Document, baseDomain string) []domain.Contact {
	var cards *goquery.Selection
	for _, sel := range genericCardSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var contacts []domain.Contact
	cards.Each(func(_ int, card *goquery.Selection) {
		c := parseGenericCard(card, baseDomain)
		if c.HasIdentity() {
			contacts = append(contacts, c)
		}
	})
	return contacts
}

func parseGenericCard(card *goquery.Selection, baseDomain string) domain.Contact {
	c := domain.Contact{Source: domain.SourceCrawl}

	for _, sel := range genericNameSelectors {
		name := cleanText(card.Find(sel).First())
		if len(name) > 2 && len(name) < 80 && !isGenericHeading(name) && looksLikePersonName(name) {
			c.Name = name
			break
		}
	}

	// Don't mistake the name heading for a title.
	var headingNode *html.Node
	if h := card.Find("h2, h3, h4, h5").First(); h.Length() > 0 {
		headingNode = h.Get(0)
	}
	for _, sel := range genericTitleSelectors {
		el := card.Find(sel).First()
		if el.Length() == 0 || (headingNode != nil && el.Get(0) == headingNode) {
			continue
		}
		title := cleanText(el)
		if len(title) > 3 && len(title) < 100 && looksLikeTitle(title) {
			c.Title = title
			break
		}
	}

	emails := ExtractEmails(card.Text(), baseDomain)
	if m := firstMailto(card, baseDomain); m != "" {
		emails = append([]string{m}, emails...)
	}
	if len(emails) > 0 {
		c.Email = emails[0]
	}

	phones := ExtractPhones(card.Text())
	if t := firstTel(card); t != "" {
		phones = append([]string{t}, phones...)
	}
	if len(phones) > 0 {
		c.Phone = phones[0]
	}

	if src, ok := card.Find("img").First().Attr("src"); ok {
		c.PhotoURL = src
	}
	return c
}

// extractFlatContacts is the last tier: collect page-wide emails and pair
// each with whatever name and title sit near it in the markup.
func extractFlatContacts(doc *goquery.Document, pageHTML, baseDomain string) []domain.Contact {
	emails := ExtractEmails(pageHTML, baseDomain)
	if len(emails) > 10 {
		emails = emails[:10]
	}

	var root *html.Node
	if len(doc.Nodes) > 0 {
		root = doc.Nodes[0]
	}

	contacts := make([]domain.Contact, 0, len(emails))
	for _, email := range emails {
		c := domain.Contact{Email: email, Source: domain.SourceCrawl}
		if root != nil {
			c.Name = findNameNearEmail(root, email)
			c.Title = findTitleNearEmail(root, email)
		}
		contacts = append(contacts, c)
	}
	return contacts
}

// ExtractEmails returns the plausible person emails in text, in order of
// first appearance, including de-obfuscated "[at]/[dot]" spellings.
func ExtractEmails(text, baseDomain string) []string {
	var emails []string
	seen := make(map[string]bool)

	for _, m := range emailRe.FindAllString(text, -1) {
		email := strings.ToLower(strings.TrimSpace(m))
		if !seen[email] && isValidContactEmail(email, baseDomain) {
			seen[email] = true
			emails = append(emails, email)
		}
	}

	for _, m := range obfuscatedEmailRe.FindAllStringSubmatch(text, -1) {
		email := strings.ToLower(m[1] + "@" + m[2] + "." + m[3])
		if !seen[email] && isValidContactEmail(email, baseDomain) {
			seen[email] = true
			emails = append(emails, email)
		}
	}
	return emails
}

// ExtractPhones returns US phone numbers in text, deduplicated by digits.
func ExtractPhones(text string) []string {
	var phones []string
	seen := make(map[string]bool)

	for _, m := range phoneRe.FindAllString(text, -1) {
		phone := strings.TrimSpace(m)
		digits := nonDigitRe.ReplaceAllString(phone, "")
		if len(digits) < 10 || len(digits) > 11 || seen[digits] {
			continue
		}
		seen[digits] = true
		phones = append(phones, phone)
	}
	return phones
}

func normalizeDomain(urlOrDomain string) string {
	d := strings.ToLower(strings.TrimSpace(urlOrDomain))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	d, _, _ = strings.Cut(d, "/")
	return strings.TrimPrefix(d, "www.")
}

func isValidContactEmail(email, baseDomain string) bool {
	local, emailDomain, found := strings.Cut(email, "@")
	if !found {
		emailDomain = ""
	}
	if excludedLocalParts[strings.ToLower(local)] {
		return false
	}
	emailDomain = strings.ToLower(emailDomain)
	if baseDomain != "" {
		normalized := normalizeDomain(baseDomain)
		// An exact match on the dealership's own domain outranks the vendor
		// exclusion list.
		if emailDomain == normalized {
			return true
		}
		if !strings.HasSuffix(emailDomain, "."+normalized) {
			return false
		}
	}
	return !excludedEmailDomains[emailDomain]
}

func isGenericHeading(text string) bool {
	return genericHeadings[strings.ToLower(strings.TrimSpace(text))]
}

// A person's name has at least two words and isn't built purely from role
// words ("General Manager" is a title, not a name).
func looksLikePersonName(text string) bool {
	words := strings.Fields(text)
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if !titleOnlyWords[strings.ToLower(w)] {
			return true
		}
	}
	return false
}

func looksLikeTitle(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range titleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func mailtoAddress(el *goquery.Selection, baseDomain string) (string, bool) {
	href, ok := el.Attr("href")
	if !ok || !strings.HasPrefix(href, "mailto:") {
		return "", false
	}
	addr := strings.TrimPrefix(href, "mailto:")
	addr, _, _ = strings.Cut(addr, "?")
	addr = strings.TrimSpace(addr)
	if !isValidContactEmail(strings.ToLower(addr), baseDomain) {
		return "", false
	}
	return addr, true
}

func firstMailto(card *goquery.Selection, baseDomain string) string {
	var email string
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if addr, ok := mailtoAddress(a, baseDomain); ok {
			email = addr
			return false
		}
		return true
	})
	return email
}

func firstTel(card *goquery.Selection) string {
	var phone string
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if href, ok := a.Attr("href"); ok && strings.HasPrefix(href, "tel:") {
			phone = strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
			return false
		}
		return true
	})
	return phone
}

func findNameNearEmail(root *html.Node, email string) string {
	var name string
	forEachTextNode(root, func(n *html.Node) bool {
		if !strings.Contains(strings.ToLower(n.Data), email) || n.Parent == nil || n.Parent.Parent == nil {
			return true
		}
		for sib := n.Parent.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
			if sib.Type != html.ElementNode {
				continue
			}
			switch sib.Data {
			case "h2", "h3", "h4", "h5", "strong":
				candidate := nodeText(sib)
				if len(candidate) > 2 && len(candidate) < 80 {
					name = candidate
					return false
				}
			}
		}
		return true
	})
	return name
}

func findTitleNearEmail(root *html.Node, email string) string {
	var title string
	forEachTextNode(root, func(n *html.Node) bool {
		if !strings.Contains(strings.ToLower(n.Data), email) || n.Parent == nil || n.Parent.Parent == nil {
			return true
		}
		for sib := n.Parent.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
			if sib.Type != html.ElementNode {
				continue
			}
			text := nodeText(sib)
			if text != "" && looksLikeTitle(text) && strings.ToLower(text) != email {
				title = text
				return false
			}
		}
		return true
	})
	return title
}

// forEachTextNode walks the tree depth-first; fn returns false to stop.
func forEachTextNode(n *html.Node, fn func(*html.Node) bool) bool {
	if n.Type == html.TextNode && !fn(n) {
		return false
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !forEachTextNode(child, fn) {
			return false
		}
	}
	return true
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func cleanText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// dedupe drops repeats by email first, then by name, keeping first seen.
func dedupe(contacts []domain.Contact) []domain.Contact {
	seenEmails := make(map[string]bool)
	seenNames := make(map[string]bool)
	out := make([]domain.Contact, 0, len(contacts))

	for _, c := range contacts {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if email != "" {
			if seenEmails[email] {
				continue
			}
			seenEmails[email] = true
		} else if name != "" {
			if seenNames[name] {
				continue
			}
			seenNames[name] = true
		}
		out = append(out, c)
	}
	return out
}
