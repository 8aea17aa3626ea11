package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerscout/internal/domain"
)

func TestClassifyEmptyTitle(t *testing.T) {
	cl := Classify("", "")
	assert.Equal(t, CategoryOther, cl.Category)
	assert.Equal(t, SeniorityOther, cl.Seniority)
	assert.Zero(t, cl.Confidence)
}

func TestClassifyNegativePattern(t *testing.T) {
	for _, title := range []string{"Sales Intern", "Temporary Service Advisor", "Marketing Volunteer"} {
		cl := Classify(title, "")
		assert.Equal(t, CategoryOther, cl.Category, title)
		assert.Equal(t, SeniorityOther, cl.Seniority, title)
		assert.InDelta(t, 0.2, cl.Confidence, 0.001, title)
	}
}

func TestClassifyExactMatches(t *testing.T) {
	tests := []struct {
		title     string
		category  Category
		seniority Seniority
	}{
		{"Owner", CategoryOwnership, SeniorityCSuite},
		{"General Manager", CategorySeniorLeadership, SenioritySeniorExecutive},
		{"Finance Manager", CategoryManagement, SeniorityManager},
		{"Sales Director", CategoryDepartmentHead, SeniorityDirector},
		{"Service Advisor", CategorySpecialist, SenioritySpecialist},
		{"Receptionist", CategoryOther, SeniorityCoordinator},
	}
	for _, tt := range tests {
		cl := Classify(tt.title, "")
		assert.Equal(t, tt.category, cl.Category, tt.title)
		assert.Equal(t, tt.seniority, cl.Seniority, tt.title)
		assert.GreaterOrEqual(t, cl.Confidence, 0.9, tt.title)
	}
}

// "Dealer Principal" matches both the C-Suite "principal" pattern (substring,
// 0.9) and the Senior Executive "dealer principal" pattern (exact, 1.0). The
// stronger match must win even though it sits in a lower tier.
func TestClassifyStrongerMatchBeatsHigherTier(t *testing.T) {
	cl := Classify("Dealer Principal", "")
	assert.Equal(t, SenioritySeniorExecutive, cl.Seniority)
	assert.Equal(t, CategoryOwnership, cl.Category)
	assert.InDelta(t, 1.0, cl.Confidence, 0.001)
}

func TestClassifyAbbreviationExpansion(t *testing.T) {
	cl := Classify("GM", "")
	assert.Equal(t, SenioritySeniorExecutive, cl.Seniority)

	cl = Classify("Sr. Sales Mgr", "")
	assert.Equal(t, SeniorityManager, cl.Seniority)
	assert.Equal(t, CategoryManagement, cl.Category)
}

func TestClassifyDealershipSignal(t *testing.T) {
	plain := Classify("General Manager", "Acme Consulting")
	assert.False(t, plain.DealershipSpecific)

	boosted := Classify("General Manager", "Smith Honda")
	assert.True(t, boosted.DealershipSpecific)
	assert.GreaterOrEqual(t, boosted.Confidence, plain.Confidence)

	byTitle := Classify("Service Advisor", "")
	assert.True(t, byTitle.DealershipSpecific)
}

func TestClassifyFallback(t *testing.T) {
	cl := Classify("Lead Widget Evangelist", "")
	assert.Equal(t, CategoryOther, cl.Category)
	assert.Equal(t, SeniorityOther, cl.Seniority)
	assert.InDelta(t, 0.2, cl.Confidence, 0.001)

	cl = Classify("Head of Selling Stuff", "")
	assert.Equal(t, CategorySales, cl.Category)
}

func TestClassifyDeterministic(t *testing.T) {
	first := Classify("F&I Manager", "Smith Honda")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify("F&I Manager", "Smith Honda"))
	}
}

func TestSeniorityScoreOrdering(t *testing.T) {
	order := []Seniority{
		SeniorityCSuite, SenioritySeniorExecutive, SeniorityDirector,
		SeniorityManager, SenioritySpecialist, SeniorityCoordinator, SeniorityOther,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, SeniorityScore(order[i-1]), SeniorityScore(order[i]))
	}
	assert.Equal(t, 1.0, SeniorityScore(SeniorityCSuite))
}

func TestFilterCriteriaMatches(t *testing.T) {
	owner := Classify("Owner", "")
	consultant := Classify("Sales Consultant", "")

	var nilCriteria *FilterCriteria
	assert.True(t, nilCriteria.Matches(owner))

	senior := &FilterCriteria{MinSeniorityScore: 0.5}
	assert.True(t, senior.Matches(owner))
	assert.False(t, senior.Matches(consultant))

	excluded := &FilterCriteria{ExcludeCategories: []Category{CategoryOwnership}}
	assert.False(t, excluded.Matches(owner))
	assert.True(t, excluded.Matches(consultant))

	byLevel := &FilterCriteria{SeniorityLevels: []Seniority{SenioritySpecialist}}
	assert.False(t, byLevel.Matches(owner))
	assert.True(t, byLevel.Matches(consultant))
}

func TestFilterContacts(t *testing.T) {
	contacts := []domain.Contact{
		{Name: "Ann Able", Title: "Owner"},
		{Name: "Bob Baker", Title: "Sales Consultant"},
		{Name: "Cara Cole", Title: "General Manager"},
	}

	out := FilterContacts(contacts, &FilterCriteria{MinSeniorityScore: 0.8})
	require.Len(t, out, 2)
	assert.Equal(t, "Ann Able", out[0].Name)
	assert.Equal(t, "Cara Cole", out[1].Name)

	assert.Equal(t, contacts, FilterContacts(contacts, nil))
}
