// Package validation checks contact field quality and produces the weighted
// 0-100 confidence score used to rank contacts.
package validation

import (
	"context"
	"log"
	"math"
	"regexp"
	"strings"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
	"dealerscout/internal/services/roles"
)

// FieldResult is the validation outcome for a single contact field.
type FieldResult struct {
	Valid           bool
	Issues          []string
	NormalizedValue string
	Verification    *domain.Verification
}

// ContactValidation aggregates per-field results and cross-field issues.
type ContactValidation struct {
	Email         FieldResult
	Phone         FieldResult
	Name          FieldResult
	LinkedIn      FieldResult
	Title         FieldResult
	OverallIssues []string
}

var seniorTitles = map[string]bool{
	"owner": true, "co-owner": true, "president": true, "ceo": true,
	"chief executive officer": true, "cfo": true, "chief financial officer": true,
	"coo": true, "chief operating officer": true, "general manager": true,
	"managing partner": true, "principal": true, "dealer principal": true,
	"executive director": true, "managing director": true,
	"vice president": true, "vp": true, "svp": true, "evp": true,
}

var managementTitles = map[string]bool{
	"director": true, "manager": true, "sales manager": true,
	"service manager": true, "finance manager": true, "parts manager": true,
	"marketing manager": true, "operations manager": true,
	"general sales manager": true, "f&i manager": true, "business manager": true,
	"fixed operations manager": true, "internet sales manager": true,
	"fleet manager": true,
}

var disposableEmailDomains = map[string]bool{
	"mailinator.com": true, "guerrillamail.com": true, "tempmail.com": true,
	"throwaway.email": true, "yopmail.com": true, "sharklasers.com": true,
	"guerrillamailblock.com": true, "grr.la": true, "dispostable.com": true,
	"trashmail.com": true, "10minutemail.com": true, "temp-mail.org": true,
	"fakeinbox.com": true, "mailnesia.com": true, "maildrop.cc": true,
}

var personalEmailDomains = map[string]bool{
	"gmail.com": true, "yahoo.com": true, "hotmail.com": true,
	"outlook.com": true, "aol.com": true, "icloud.com": true, "mail.com": true,
	"protonmail.com": true, "zoho.com": true, "yandex.com": true,
	"live.com": true, "msn.com": true, "comcast.net": true, "att.net": true,
	"verizon.net": true, "cox.net": true,
}

var placeholderNames = map[string]bool{
	"test": true, "unknown": true, "n/a": true, "na": true, "none": true,
	"null": true, "admin": true, "user": true, "contact": true, "info": true,
	"support": true,
}

var placeholderTitles = map[string]bool{
	"test": true, "unknown": true, "n/a": true, "na": true, "none": true,
	"null": true, "employee": true, "staff": true,
}

var (
	emailFormatRe = regexp.MustCompile(
		`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@` +
			`[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
			`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	nonDigitRe        = regexp.MustCompile(`\D`)
	phoneFormattingRe = regexp.MustCompile(`[\s\-\(\)\.\+]`)
	fakePhonePrefixRe = regexp.MustCompile(`^(0{10}|1{10}|123456)`)
	nameCharsetRe     = regexp.MustCompile(`[^a-zA-Z\s\-'.]+`)
	linkedinPersonRe  = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/in/[a-zA-Z0-9\-_%]+/?$`)
	linkedinCompanyRe = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/company/[a-zA-Z0-9\-_%]+/?$`)
)

// Validator validates contacts and computes confidence scores. The email
// verifier is optional; without one, email quality falls back to
// format/domain checks.
type Validator struct {
	verifier ports.EmailVerifier
}

func New(verifier ports.EmailVerifier) *Validator {
	return &Validator{verifier: verifier}
}

// ValidateContact runs every field validator plus cross-field checks. It
// never fails; all problems land in issue lists.
func (v *Validator) ValidateContact(ctx context.Context, c domain.Contact) ContactValidation {
	cv := ContactValidation{
		Email:    v.ValidateEmail(ctx, c.Email),
		Phone:    ValidatePhone(c.Phone),
		Name:     ValidateName(c.Name),
		LinkedIn: ValidateLinkedInURL(c.LinkedInURL),
		Title:    ValidateTitle(c.Title),
	}

	if !cv.Email.Valid && !cv.Phone.Valid {
		cv.OverallIssues = append(cv.OverallIssues, "No valid contact method (email or phone)")
	}
	if !cv.Name.Valid {
		cv.OverallIssues = append(cv.OverallIssues, "Invalid or missing contact name")
	}
	if !cv.Title.Valid {
		cv.OverallIssues = append(cv.OverallIssues, "Missing or invalid job title")
	}

	// A company-domain email whose local part shares nothing with the name is
	// suspicious (shared inboxes, scraped noise).
	if c.Email != "" && c.Name != "" && strings.Contains(c.Email, "@") {
		local, emailDomain := splitEmail(c.Email)
		if !personalEmailDomains[emailDomain] {
			matched := false
			for _, part := range strings.Fields(strings.ToLower(c.Name)) {
				if len(part) > 2 && strings.Contains(local, part) {
					matched = true
					break
				}
			}
			if !matched {
				cv.OverallIssues = append(cv.OverallIssues, "Email local part does not appear to match contact name")
			}
		}
	}
	return cv
}

// ValidateEmail checks format and domain reputation, and consults the
// verifier when one is configured.
func (v *Validator) ValidateEmail(ctx context.Context, email string) FieldResult {
	if strings.TrimSpace(email) == "" {
		return FieldResult{Issues: []string{"Missing email address"}}
	}

	email = strings.ToLower(strings.TrimSpace(email))
	var issues []string

	if !emailFormatRe.MatchString(email) {
		return FieldResult{Issues: []string{"Invalid email format"}, NormalizedValue: email}
	}

	_, emailDomain := splitEmail(email)
	disposable := disposableEmailDomains[emailDomain]
	if disposable {
		issues = append(issues, "Disposable email domain")
	}
	if personalEmailDomains[emailDomain] {
		issues = append(issues, "Personal email domain (not company email)")
	}

	var verification *domain.Verification
	verifierValid := true
	if v != nil && v.verifier != nil {
		vr, err := v.verifier.Verify(ctx, email)
		if err != nil {
			log.Printf("email verification failed for %s: %v", email, err)
			issues = append(issues, "Verification service error")
		} else {
			verification = &vr
			if !vr.Valid {
				verifierValid = false
				issues = append(issues, vr.Issues...)
			}
		}
	}

	return FieldResult{
		Valid:           !disposable && verifierValid,
		Issues:          issues,
		NormalizedValue: email,
		Verification:    verification,
	}
}

// ValidatePhone normalizes to "(xxx) xxx-xxxx" for US numbers and flags
// lengths outside 10-15 digits and obvious placeholders.
func ValidatePhone(phone string) FieldResult {
	if strings.TrimSpace(phone) == "" {
		return FieldResult{Issues: []string{"Missing phone number"}}
	}

	phone = strings.TrimSpace(phone)
	normalized := normalizePhone(phone)
	if normalized == "" {
		return FieldResult{Issues: []string{"Phone number contains no digits"}, NormalizedValue: phone}
	}

	var issues []string
	digits := nonDigitRe.ReplaceAllString(normalized, "")
	if len(digits) < 10 {
		issues = append(issues, "Phone number too short")
	} else if len(digits) > 15 {
		issues = append(issues, "Phone number too long")
	}

	if allSameDigit(digits) {
		issues = append(issues, "Phone number appears to be fake (all same digit)")
	}
	if fakePhonePrefixRe.MatchString(digits) {
		issues = append(issues, "Phone number appears to be a placeholder")
	}

	return FieldResult{Valid: len(issues) == 0, Issues: issues, NormalizedValue: normalized}
}

// ValidateName requires at least first and last name in plain letters,
// normalizing capitalization.
func ValidateName(name string) FieldResult {
	if strings.TrimSpace(name) == "" {
		return FieldResult{Issues: []string{"Missing contact name"}}
	}

	name = strings.TrimSpace(name)
	var issues []string

	if len(name) < 2 {
		issues = append(issues, "Name is too short")
	}
	if placeholderNames[strings.ToLower(name)] {
		issues = append(issues, "Name appears to be a placeholder")
	}

	parts := strings.Fields(name)
	if len(parts) < 2 {
		issues = append(issues, "Name appears to be missing first or last name")
	}
	if nameCharsetRe.MatchString(name) {
		issues = append(issues, "Name contains unexpected characters")
	}
	if len(name) > 100 {
		issues = append(issues, "Name is unusually long")
	}

	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = capitalize(p)
	}

	return FieldResult{
		Valid:           len(issues) == 0,
		Issues:          issues,
		NormalizedValue: strings.Join(normalized, " "),
	}
}

// ValidateLinkedInURL accepts /in/ and /company/ profile URLs.
func ValidateLinkedInURL(url string) FieldResult {
	if strings.TrimSpace(url) == "" {
		return FieldResult{Issues: []string{"Missing LinkedIn URL"}}
	}

	url = strings.TrimSpace(url)
	var issues []string

	if !linkedinPersonRe.MatchString(url) && !linkedinCompanyRe.MatchString(url) {
		if strings.Contains(strings.ToLower(url), "linkedin.com") {
			issues = append(issues, "LinkedIn URL format is non-standard")
		} else {
			return FieldResult{Issues: []string{"Not a valid LinkedIn URL"}, NormalizedValue: url}
		}
	}

	normalized := strings.TrimRight(url, "/")
	if !strings.HasPrefix(normalized, "http") {
		normalized = "https://" + normalized
	}
	return FieldResult{Valid: true, Issues: issues, NormalizedValue: normalized}
}

// ValidateTitle rejects empty, placeholder, and absurdly long titles.
func ValidateTitle(title string) FieldResult {
	if strings.TrimSpace(title) == "" {
		return FieldResult{Issues: []string{"Missing job title"}}
	}

	title = strings.TrimSpace(title)
	var issues []string

	if len(title) < 2 {
		issues = append(issues, "Job title is too short")
	}
	if placeholderTitles[strings.ToLower(title)] {
		issues = append(issues, "Job title appears to be a placeholder")
	}
	if len(title) > 200 {
		issues = append(issues, "Job title is unusually long")
	}

	return FieldResult{Valid: len(issues) == 0, Issues: issues, NormalizedValue: title}
}

var seniorityPoints = map[roles.Seniority]float64{
	roles.SeniorityCSuite:          20,
	roles.SenioritySeniorExecutive: 18,
	roles.SeniorityDirector:        16,
	roles.SeniorityManager:         14,
	roles.SenioritySpecialist:      10,
	roles.SeniorityCoordinator:     6,
	roles.SeniorityOther:           4,
}

var categoryBonus = map[roles.Category]float64{
	roles.CategoryOwnership:        5,
	roles.CategorySeniorLeadership: 4,
	roles.CategoryManagement:       3,
	roles.CategoryDepartmentHead:   3,
	roles.CategorySales:            2,
	roles.CategoryService:          2,
	roles.CategoryFinance:          2,
	roles.CategoryMarketing:        1,
	roles.CategoryOperations:       1,
	roles.CategoryIT:               0.5,
	roles.CategoryHRAdmin:          0.5,
	roles.CategorySpecialist:       1,
	roles.CategoryOther:            0,
}

// ConfidenceScore computes the weighted quality score for a contact. Factors
// sum to at most 110 raw points and are normalized to a 0-100 scale, rounded
// to one decimal. Same input, same score.
func (v *Validator) ConfidenceScore(c domain.Contact, cv ContactValidation) (float64, domain.ConfidenceFactors) {
	var f domain.ConfidenceFactors

	// Completeness: share of the five core fields present, up to 25 points.
	filled := 0
	for _, field := range []string{c.Email, c.Phone, c.Name, c.Title, c.LinkedInURL} {
		if strings.TrimSpace(field) != "" {
			filled++
		}
	}
	f.DataCompleteness = float64(filled) / 5 * 25

	// Domain consistency, up to 15 points.
	if strings.Contains(c.Email, "@") {
		_, emailDomain := splitEmail(c.Email)
		switch {
		case c.CompanyDomain != "" && emailDomain == strings.ToLower(c.CompanyDomain):
			f.DomainConsistency = 15
		case !personalEmailDomains[emailDomain]:
			f.DomainConsistency = 10
		default:
			f.DomainConsistency = 3
		}
	}

	// Title seniority and category, up to 20 points.
	if c.Title != "" {
		cl := roles.Classify(c.Title, c.CompanyName)
		score := seniorityPoints[cl.Seniority] + categoryBonus[cl.Category]
		score = min(20, score)
		if cl.DealershipSpecific {
			score = min(20, score+2)
		}
		f.ProfessionalTitle = score
	}

	// LinkedIn presence, up to 15 points.
	if c.LinkedInURL != "" {
		if cv.LinkedIn.Valid {
			f.LinkedInPresence = 15
		} else {
			f.LinkedInPresence = 5
		}
	}

	// Consistency: start at 15, deduct 3 per cross-field issue and 1 per
	// field-level issue, floored at 0.
	consistency := 15.0
	consistency -= float64(len(cv.OverallIssues)) * 3
	fieldIssues := len(cv.Email.Issues) + len(cv.Phone.Issues) + len(cv.Name.Issues) +
		len(cv.Title.Issues) + len(cv.LinkedIn.Issues)
	consistency -= float64(fieldIssues)
	f.DataConsistency = max(0, consistency)

	// Email quality, up to 20 points when mailbox-verified.
	if cv.Email.Valid {
		emailScore := 15.0
		if vr := cv.Email.Verification; vr != nil {
			switch vr.Level {
			case "mailbox":
				emailScore = 20
			case "domain":
				emailScore = 17
			}
			emailScore *= vr.Confidence
		}
		f.EmailQuality = emailScore
	} else if c.Email != "" {
		f.EmailQuality = 2
	}

	total := f.DataCompleteness + f.DomainConsistency + f.ProfessionalTitle +
		f.LinkedInPresence + f.DataConsistency + f.EmailQuality
	final := min(100, total/110*100)
	return math.Round(final*10) / 10, f
}

// QualityFlags generates the human-readable labels attached to a contact.
func (v *Validator) QualityFlags(c domain.Contact, cv ContactValidation) []string {
	var flags []string

	title := strings.ToLower(strings.TrimSpace(c.Title))
	if seniorTitles[title] {
		flags = append(flags, "senior_leader")
	} else if managementTitles[title] {
		flags = append(flags, "management")
	}

	if cv.Email.Valid && strings.Contains(c.Email, "@") {
		_, emailDomain := splitEmail(c.Email)
		if personalEmailDomains[emailDomain] {
			flags = append(flags, "personal_email")
		} else {
			flags = append(flags, "company_email")
		}
	}
	if cv.LinkedIn.Valid {
		flags = append(flags, "has_linkedin")
	}
	if cv.Phone.Valid {
		flags = append(flags, "has_phone")
	}

	if !cv.Email.Valid && !cv.Phone.Valid {
		flags = append(flags, "no_contact_method")
	}
	if !cv.Name.Valid {
		flags = append(flags, "invalid_name")
	}
	if !cv.Title.Valid {
		flags = append(flags, "missing_title")
	}
	if len(cv.OverallIssues) > 0 {
		flags = append(flags, "has_issues")
	}
	return flags
}

func splitEmail(email string) (local, emailDomain string) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return strings.ToLower(email), ""
	}
	return strings.ToLower(email[:at]), strings.ToLower(email[at+1:])
}

func normalizePhone(phone string) string {
	cleaned := phoneFormattingRe.ReplaceAllString(phone, "")
	digits := nonDigitRe.ReplaceAllString(cleaned, "")
	if digits == "" {
		return ""
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) == 10 {
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	}
	return digits
}

func allSameDigit(digits string) bool {
	if digits == "" {
		return false
	}
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
