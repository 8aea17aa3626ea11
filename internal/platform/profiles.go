// Package platform holds the static catalog of known dealership website
// platforms: markup signatures for detection plus the page paths and CSS
// selectors used for staff-page discovery and contact extraction.
package platform

import "fmt"

// Profile describes one website-builder platform. Profiles are immutable;
// the table is validated once at package init and never mutated at runtime.
type Profile struct {
	Name             string
	Signatures       []string
	StaffPagePaths   []string
	ContactPagePaths []string
	CardSelectors    []string
	NameSelectors    []string
	TitleSelectors   []string
	EmailSelectors   []string
	PhoneSelectors   []string
}

// Unknown is the platform name reported when detection finds nothing.
const Unknown = "Custom/Unknown"

// table is ordered; detection scans profiles in this order and the first
// signature hit wins, so order is part of the contract.
var table = []Profile{
	{
		Name:       "Dealer.com",
		Signatures: []string{"dealer.com/content", "ddc-site", "dealercom", "static.dealer.com"},
		StaffPagePaths: []string{
			"/staff",
			"/dealership/staff.htm",
			"/dealership/meet-our-staff.htm",
			"/about-us",
			"/dealership/about.htm",
		},
		ContactPagePaths: []string{"/contact-us", "/dealership/contact.htm"},
		CardSelectors: []string{
			".staffMembers .staffMember",
			"[class*='staffMember']",
			"[class*='staffDisplay'] > div",
			"[class*='ddc-content'] .staff-card",
			"[class*='staff-member']",
		},
		NameSelectors:  []string{"[class*='staffName']", ".staffTitle h3", "[itemprop='name']", "h3"},
		TitleSelectors: []string{"[class*='staffJobTitle']", ".staffTitle p", "[itemprop='jobTitle']"},
		EmailSelectors: []string{"a[href^='mailto:']", "[class*='staffEmail']"},
		PhoneSelectors: []string{"a[href^='tel:']", "[class*='staffPhone']"},
	},
	{
		Name:       "DealerOn",
		Signatures: []string{"dealeron.com", "dealeron-", "cdn.dealeron"},
		StaffPagePaths: []string{
			"/staff",
			"/our-team",
			"/meet-our-staff",
			"/about-us",
			"/about",
		},
		ContactPagePaths: []string{"/contact-us", "/contact"},
		CardSelectors: []string{
			"[class*='staffMember']",
			"[class*='team-member']",
			".staff-list .staff-item",
			"[class*='employee-card']",
		},
		NameSelectors:  []string{"[class*='name']", "h3", "h4", "[itemprop='name']"},
		TitleSelectors: []string{"[class*='title']", "[class*='position']", "[itemprop='jobTitle']"},
		EmailSelectors: []string{"a[href^='mailto:']", "[class*='email']"},
		PhoneSelectors: []string{"a[href^='tel:']", "[class*='phone']"},
	},
	{
		Name:       "DealerInspire",
		Signatures: []string{"dealerinspire.com", "di-", "foxdealer"},
		StaffPagePaths: []string{
			"/our-team",
			"/staff",
			"/meet-our-team",
			"/about-us",
			"/about",
		},
		ContactPagePaths: []string{"/contact-us", "/contact"},
		CardSelectors: []string{
			"[class*='team-member']",
			"[class*='staff-member']",
			".team-grid .team-card",
			"[class*='employee']",
		},
		NameSelectors:  []string{"[class*='member-name']", "h3", "h4", "[itemprop='name']"},
		TitleSelectors: []string{"[class*='member-title']", "[class*='position']", "[itemprop='jobTitle']"},
		EmailSelectors: []string{"a[href^='mailto:']", "[class*='email']"},
		PhoneSelectors: []string{"a[href^='tel:']", "[class*='phone']"},
	},
	{
		Name:             "DealerFire",
		Signatures:       []string{"dealerfire.com"},
		StaffPagePaths:   []string{"/staff", "/our-team", "/about-us", "/meet-the-team"},
		ContactPagePaths: []string{"/contact-us", "/contact"},
		CardSelectors:    []string{"[class*='staff']", "[class*='team-member']", "[class*='employee']"},
		NameSelectors:    []string{"[class*='name']", "h3", "h4", "[itemprop='name']"},
		TitleSelectors:   []string{"[class*='title']", "[class*='position']", "[itemprop='jobTitle']"},
		EmailSelectors:   []string{"a[href^='mailto:']"},
		PhoneSelectors:   []string{"a[href^='tel:']"},
	},
	{
		Name:             "Sincro",
		Signatures:       []string{"sincrodigital.com", "sincro."},
		StaffPagePaths:   []string{"/staff", "/our-team", "/about-us", "/about"},
		ContactPagePaths: []string{"/contact-us", "/contact"},
		CardSelectors:    []string{"[class*='staff']", "[class*='team-member']", "[class*='employee']"},
		NameSelectors:    []string{"[class*='name']", "h3", "h4"},
		TitleSelectors:   []string{"[class*='title']", "[class*='position']"},
		EmailSelectors:   []string{"a[href^='mailto:']"},
		PhoneSelectors:   []string{"a[href^='tel:']"},
	},
	{
		Name:             "Dealer Car Search",
		Signatures:       []string{"dealercarsearch.com", "dcsimg", "dealer-car-search"},
		StaffPagePaths:   []string{"/staff", "/our-team", "/about-us", "/about"},
		ContactPagePaths: []string{"/contact-us", "/contact"},
		CardSelectors:    []string{"[class*='staff']", "[class*='team']", "[class*='employee']"},
		NameSelectors:    []string{"[class*='name']", "h3", "h4"},
		TitleSelectors:   []string{"[class*='title']", "[class*='position']"},
		EmailSelectors:   []string{"a[href^='mailto:']"},
		PhoneSelectors:   []string{"a[href^='tel:']"},
	},
	{
		Name:             "Cars.com",
		Signatures:       []string{"dealer-inspire", "cars.com/dealers", "cars.com"},
		StaffPagePaths:   []string{"/our-team", "/staff", "/meet-the-team", "/about-us"},
		ContactPagePaths: []string{"/contact-us", "/contact"},
		CardSelectors:    []string{"[class*='team-member']", "[class*='staff-member']", "[class*='employee']"},
		NameSelectors:    []string{"[class*='name']", "h3", "h4", "[itemprop='name']"},
		TitleSelectors:   []string{"[class*='title']", "[class*='position']", "[itemprop='jobTitle']"},
		EmailSelectors:   []string{"a[href^='mailto:']"},
		PhoneSelectors:   []string{"a[href^='tel:']"},
	},
	{
		Name:             "Reynolds & Reynolds",
		Signatures:       []string{"rfrk.com", "reyweb", "reynolds"},
		StaffPagePaths:   []string{"/staff", "/about-us", "/our-team", "/about"},
		ContactPagePaths: []string{"/contact-us", "/contact"},
		CardSelectors:    []string{"[class*='staff']", "[class*='team']", "[class*='employee']"},
		NameSelectors:    []string{"[class*='name']", "h3", "h4"},
		TitleSelectors:   []string{"[class*='title']", "[class*='position']"},
		EmailSelectors:   []string{"a[href^='mailto:']"},
		PhoneSelectors:   []string{"a[href^='tel:']"},
	},
}

var byName map[string]Profile

func init() {
	byName = make(map[string]Profile, len(table))
	for _, p := range table {
		if err := validate(p); err != nil {
			panic(fmt.Sprintf("platform: invalid profile %q: %v", p.Name, err))
		}
		if _, dup := byName[p.Name]; dup {
			panic(fmt.Sprintf("platform: duplicate profile %q", p.Name))
		}
		byName[p.Name] = p
	}
}

func validate(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("empty name")
	}
	if len(p.Signatures) == 0 {
		return fmt.Errorf("no signatures")
	}
	if len(p.StaffPagePaths) == 0 {
		return fmt.Errorf("no staff page paths")
	}
	if len(p.CardSelectors) == 0 {
		return fmt.Errorf("no card selectors")
	}
	return nil
}

// Lookup returns the profile for a platform name, or nil if unknown.
func Lookup(name string) *Profile {
	if p, ok := byName[name]; ok {
		return &p
	}
	return nil
}

// All returns the profiles in detection priority order.
func All() []Profile { return table }

// GenericStaffPaths are staff page paths tried across all platforms.
var GenericStaffPaths = []string{
	"/staff",
	"/team",
	"/our-team",
	"/meet-the-team",
	"/meet-our-team",
	"/about-us",
	"/about",
	"/about/staff",
	"/about/team",
	"/employees",
	"/management",
	"/leadership",
	"/our-staff",
	"/people",
}

// GenericContactPaths are fallback contact page paths when no staff page is
// found or it yields too few contacts.
var GenericContactPaths = []string{
	"/contact-us",
	"/contact",
	"/get-in-touch",
}

// NavKeywords are anchor-text fragments that suggest a staff page link.
var NavKeywords = []string{
	"staff",
	"team",
	"about us",
	"about",
	"meet the team",
	"our people",
	"management",
	"leadership",
}

// SitemapKeywords are URL fragments that suggest a staff page in sitemap.xml.
var SitemapKeywords = []string{
	"staff",
	"team",
	"about-us",
	"our-team",
	"meet-the-team",
	"employees",
	"management",
}
