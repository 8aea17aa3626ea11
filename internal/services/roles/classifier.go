package roles

import (
	"regexp"
	"strings"

	"dealerscout/internal/domain"
)

// Seniority buckets a title by how senior the role is.
type Seniority string

const (
	SeniorityCSuite          Seniority = "C-Suite"
	SenioritySeniorExecutive Seniority = "Senior Executive"
	SeniorityDirector        Seniority = "Director"
	SeniorityManager         Seniority = "Manager"
	SenioritySpecialist      Seniority = "Specialist"
	SeniorityCoordinator     Seniority = "Coordinator"
	SeniorityOther           Seniority = "Other"
)

// Category buckets a title by functional area.
type Category string

const (
	CategoryOwnership        Category = "Ownership"
	CategorySeniorLeadership Category = "Senior Leadership"
	CategoryManagement       Category = "Management"
	CategoryDepartmentHead   Category = "Department Head"
	CategorySpecialist       Category = "Specialist"
	CategorySales            Category = "Sales"
	CategoryService          Category = "Service"
	CategoryFinance          Category = "Finance"
	CategoryMarketing        Category = "Marketing"
	CategoryOperations       Category = "Operations"
	CategoryIT               Category = "IT/Technology"
	CategoryHRAdmin          Category = "HR/Admin"
	CategoryOther            Category = "Other"
)

// Classification is the outcome of classifying one job title.
type Classification struct {
	Category           Category
	Seniority          Seniority
	Confidence         float64
	NormalizedTitle    string
	KeywordsMatched    []string
	DealershipSpecific bool
}

// FilterCriteria narrows a contact list by role. Zero value matches everything.
type FilterCriteria struct {
	Categories             []Category
	SeniorityLevels        []Seniority
	MinSeniorityScore      float64
	DealershipSpecificOnly bool
	ExcludeCategories      []Category
}

type patternGroup struct {
	roleType string
	patterns []string
}

type tier struct {
	seniority Seniority
	groups    []patternGroup
}

// Tiers are walked top-down and pattern groups in declaration order, so on a
// confidence tie the more senior interpretation wins. Keep the ordering.
var tiers = []tier{
	{SeniorityCSuite, []patternGroup{
		{"ceo", []string{"chief executive officer", "ceo", "chief executive", "president & ceo"}},
		{"cfo", []string{"chief financial officer", "cfo", "chief financial"}},
		{"coo", []string{"chief operating officer", "coo", "chief operating"}},
		{"president", []string{"president", "company president"}},
		{"owner", []string{"owner", "co-owner", "business owner", "dealership owner"}},
		{"principal", []string{"principal", "managing principal"}},
		{"partner", []string{"managing partner", "partner", "equity partner"}},
	}},
	{SenioritySeniorExecutive, []patternGroup{
		{"vice_president", []string{"vice president", "vp", "executive vice president", "evp", "senior vice president", "svp"}},
		{"executive_director", []string{"executive director", "managing director"}},
		{"general_manager", []string{"general manager", "gm", "dealership general manager"}},
		{"dealer_principal", []string{"dealer principal", "dealer"}},
		{"senior_partner", []string{"senior partner"}},
	}},
	{SeniorityDirector, []patternGroup{
		{"sales_director", []string{"sales director", "director of sales", "sales and leasing director"}},
		{"service_director", []string{"service director", "director of service", "fixed operations director"}},
		{"parts_director", []string{"parts director", "director of parts", "parts and service director"}},
		{"finance_director", []string{"finance director", "director of finance", "f&i director"}},
		{"marketing_director", []string{"marketing director", "director of marketing"}},
		{"operations_director", []string{"operations director", "director of operations"}},
		{"hr_director", []string{"hr director", "director of human resources", "people director"}},
		{"it_director", []string{"it director", "director of it", "technology director"}},
	}},
	{SeniorityManager, []patternGroup{
		{"sales_manager", []string{"sales manager", "new car sales manager", "used car sales manager", "leasing manager", "fleet sales manager", "internet sales manager"}},
		{"service_manager", []string{"service manager", "fixed operations manager", "service operations manager", "warranty manager", "shop manager"}},
		{"parts_manager", []string{"parts manager", "parts and accessories manager", "parts department manager"}},
		{"finance_manager", []string{"finance manager", "f&i manager", "business manager", "finance and insurance manager"}},
		{"marketing_manager", []string{"marketing manager", "advertising manager", "digital marketing manager"}},
		{"hr_manager", []string{"hr manager", "human resources manager", "personnel manager"}},
		{"it_manager", []string{"it manager", "systems manager", "technology manager"}},
		{"operations_manager", []string{"operations manager", "facility manager", "admin manager"}},
		{"customer_relations_manager", []string{"customer relations manager", "customer service manager", "crm manager"}},
		{"inventory_manager", []string{"inventory manager", "lot manager", "vehicle inventory manager"}},
	}},
	{SenioritySpecialist, []patternGroup{
		{"sales_specialist", []string{"sales consultant", "sales associate", "sales specialist", "product specialist", "senior sales consultant", "leasing specialist", "fleet specialist"}},
		{"service_specialist", []string{"service advisor", "service consultant", "service specialist", "technical specialist", "warranty specialist"}},
		{"parts_specialist", []string{"parts specialist", "parts advisor", "parts consultant", "parts counter"}},
		{"finance_specialist", []string{"finance specialist", "f&i specialist", "credit specialist", "lease specialist"}},
		{"marketing_specialist", []string{"marketing specialist", "marketing coordinator", "digital specialist"}},
		{"it_specialist", []string{"it specialist", "systems analyst", "tech specialist"}},
		{"customer_service_specialist", []string{"customer service specialist", "customer care specialist"}},
	}},
	{SeniorityCoordinator, []patternGroup{
		{"coordinator", []string{"coordinator", "assistant coordinator", "program coordinator"}},
		{"assistant", []string{"assistant", "administrative assistant", "executive assistant"}},
		{"receptionist", []string{"receptionist", "front desk", "customer service representative"}},
		{"clerk", []string{"clerk", "office clerk", "data entry clerk"}},
		{"trainee", []string{"trainee", "intern", "apprentice"}},
	}},
}

var dealershipTitleKeywords = map[string]bool{
	"new_car": true, "used_car": true, "pre-owned": true, "certified": true,
	"leasing": true, "financing": true, "service": true, "parts": true,
	"accessories": true, "warranty": true, "collision": true, "body_shop": true,
	"dealership": true, "automotive": true, "dealer": true, "showroom": true,
	"lot": true, "inventory": true, "trade_in": true, "appraisal": true,
	"f&i": true, "finance_and_insurance": true,
}

var dealershipCompanyIndicators = []string{
	"auto", "automotive", "car", "cars", "dealership", "dealer", "motors",
	"honda", "toyota", "ford", "chevrolet", "bmw", "mercedes", "audi",
	"nissan", "volkswagen", "hyundai", "kia", "mazda", "subaru", "lexus",
	"acura", "infiniti", "cadillac", "buick", "gmc",
}

var negativePatterns = []string{
	"intern", "student", "temp", "temporary", "contractor", "freelance",
	"volunteer", "part_time", "seasonal",
}

var noiseWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "&": true,
	"at": true, "for": true, "in": true, "on": true,
}

var abbreviations = map[string]string{
	"mgr":   "manager",
	"dir":   "director",
	"coord": "coordinator",
	"asst":  "assistant",
	"sr":    "senior",
	"jr":    "junior",
	"vp":    "vice president",
	"svp":   "senior vice president",
	"evp":   "executive vice president",
	"gm":    "general manager",
}

var keyTitleWords = map[string]bool{
	"manager": true, "director": true, "president": true, "ceo": true,
	"owner": true, "vice": true, "chief": true,
}

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	nonWordRe = regexp.MustCompile(`\W`)
)

// Classify maps a raw job title to a role category and seniority level with a
// confidence in [0,1]. companyName sharpens the dealership-specific signal.
func Classify(title, companyName string) Classification {
	if strings.TrimSpace(title) == "" {
		return Classification{Category: CategoryOther, Seniority: SeniorityOther}
	}

	normalized := normalizeTitle(title)
	original := strings.TrimSpace(title)

	if hasNegativePattern(normalized) {
		return Classification{
			Category:        CategoryOther,
			Seniority:       SeniorityOther,
			Confidence:      0.2,
			NormalizedTitle: original,
		}
	}

	var best *patternMatch
	var bestSeniority Seniority
	bestConfidence := 0.0

	for _, t := range tiers {
		m := bestPatternMatch(normalized, t.groups)
		if m != nil && m.score > bestConfidence {
			best = m
			bestSeniority = t.seniority
			bestConfidence = m.score
		}
	}

	if best != nil {
		dealership := isDealershipTitle(normalized) || isDealershipCompany(companyName)
		confidence := best.score
		if dealership {
			confidence = min(1.0, confidence+0.1)
		}
		return Classification{
			Category:           determineCategory(best.roleType, bestSeniority),
			Seniority:          bestSeniority,
			Confidence:         confidence,
			NormalizedTitle:    original,
			KeywordsMatched:    strings.Fields(best.pattern),
			DealershipSpecific: dealership,
		}
	}

	return fallbackClassification(original, normalized, companyName)
}

func normalizeTitle(title string) string {
	normalized := spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
	out := make([]string, 0, 8)
	for _, w := range strings.Split(normalized, " ") {
		if noiseWords[w] {
			continue
		}
		clean := nonWordRe.ReplaceAllString(w, "")
		if full, ok := abbreviations[clean]; ok {
			out = append(out, full)
		} else {
			out = append(out, clean)
		}
	}
	return strings.Join(out, " ")
}

type patternMatch struct {
	roleType string
	pattern  string
	score    float64
}

func bestPatternMatch(normalized string, groups []patternGroup) *patternMatch {
	var best *patternMatch
	bestScore := 0.0
	for _, g := range groups {
		for _, p := range g.patterns {
			score := patternScore(normalized, p)
			if score > bestScore {
				bestScore = score
				best = &patternMatch{roleType: g.roleType, pattern: p, score: score}
			}
		}
	}
	if bestScore <= 0.3 {
		return nil
	}
	return best
}

func patternScore(title, pattern string) float64 {
	if pattern == title {
		return 1.0
	}
	if strings.Contains(title, pattern) {
		return 0.9
	}

	titleWords := wordSet(title)
	patternWords := wordSet(pattern)
	if len(patternWords) == 0 {
		return 0.0
	}

	overlap := 0
	bonus := 0.0
	for w := range patternWords {
		if titleWords[w] {
			overlap++
			if keyTitleWords[w] {
				bonus += 0.1
			}
		}
	}
	extra := 0
	for w := range titleWords {
		if !patternWords[w] {
			extra++
		}
	}

	score := float64(overlap)/float64(len(patternWords)) + bonus - float64(extra)*0.05
	return max(0.0, min(1.0, score))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// Ordered: first keyword hit decides the functional area.
var categoryKeywords = []struct {
	keyword  string
	category Category
}{
	{"sales", CategorySales},
	{"service", CategoryService},
	{"parts", CategoryService},
	{"finance", CategoryFinance},
	{"marketing", CategoryMarketing},
	{"operations", CategoryOperations},
	{"hr", CategoryHRAdmin},
	{"it", CategoryIT},
	{"customer", CategorySales},
}

func determineCategory(roleType string, seniority Seniority) Category {
	for _, kw := range []string{"owner", "principal", "partner"} {
		if strings.Contains(roleType, kw) {
			return CategoryOwnership
		}
	}
	if seniority == SeniorityCSuite || seniority == SenioritySeniorExecutive {
		return CategorySeniorLeadership
	}

	for _, ck := range categoryKeywords {
		if strings.Contains(roleType, ck.keyword) {
			switch seniority {
			case SeniorityDirector:
				return CategoryDepartmentHead
			case SeniorityManager:
				return CategoryManagement
			case SenioritySpecialist:
				return CategorySpecialist
			default:
				return ck.category
			}
		}
	}

	switch seniority {
	case SeniorityDirector:
		return CategoryDepartmentHead
	case SeniorityManager:
		return CategoryManagement
	case SenioritySpecialist:
		return CategorySpecialist
	}
	return CategoryOther
}

func isDealershipTitle(normalized string) bool {
	for _, w := range strings.Fields(normalized) {
		if dealershipTitleKeywords[w] {
			return true
		}
	}
	return false
}

func isDealershipCompany(companyName string) bool {
	if companyName == "" {
		return false
	}
	lower := strings.ToLower(companyName)
	for _, ind := range dealershipCompanyIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func hasNegativePattern(normalized string) bool {
	for _, p := range negativePatterns {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

func fallbackClassification(original, normalized, companyName string) Classification {
	dealership := isDealershipTitle(normalized) || isDealershipCompany(companyName)
	confidence := 0.2
	if dealership {
		confidence = 0.3
	}

	category := CategoryOther
	switch {
	case containsAny(normalized, "sales", "sell"):
		category = CategorySales
	case containsAny(normalized, "service", "repair", "maintenance"):
		category = CategoryService
	case containsAny(normalized, "finance", "accounting", "credit"):
		category = CategoryFinance
	}

	return Classification{
		Category:           category,
		Seniority:          SeniorityOther,
		Confidence:         confidence,
		NormalizedTitle:    original,
		DealershipSpecific: dealership,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// SeniorityScore maps a seniority level to a [0,1] weight used for filtering
// and ranking.
func SeniorityScore(s Seniority) float64 {
	switch s {
	case SeniorityCSuite:
		return 1.0
	case SenioritySeniorExecutive:
		return 0.85
	case SeniorityDirector:
		return 0.7
	case SeniorityManager:
		return 0.55
	case SenioritySpecialist:
		return 0.4
	case SeniorityCoordinator:
		return 0.25
	default:
		return 0.1
	}
}

// Matches reports whether a classification passes the filter criteria.
func (c *FilterCriteria) Matches(cl Classification) bool {
	if c == nil {
		return true
	}
	for _, ex := range c.ExcludeCategories {
		if cl.Category == ex {
			return false
		}
	}
	if len(c.Categories) > 0 && !containsCategory(c.Categories, cl.Category) {
		return false
	}
	if len(c.SeniorityLevels) > 0 && !containsSeniority(c.SeniorityLevels, cl.Seniority) {
		return false
	}
	if c.MinSeniorityScore > 0 && SeniorityScore(cl.Seniority) < c.MinSeniorityScore {
		return false
	}
	if c.DealershipSpecificOnly && !cl.DealershipSpecific {
		return false
	}
	return true
}

func containsCategory(list []Category, c Category) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

func containsSeniority(list []Seniority, s Seniority) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FilterContacts keeps the contacts whose classified role passes the
// criteria, preserving order.
func FilterContacts(contacts []domain.Contact, criteria *FilterCriteria) []domain.Contact {
	if len(contacts) == 0 || criteria == nil {
		return contacts
	}
	out := make([]domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if criteria.Matches(Classify(c.Title, c.CompanyName)) {
			out = append(out, c)
		}
	}
	return out
}
