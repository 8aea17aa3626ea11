package platform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	p := Lookup("Dealer.com")
	require.NotNil(t, p)
	assert.Equal(t, "Dealer.com", p.Name)

	assert.Nil(t, Lookup("NoSuchPlatform"))
	assert.Nil(t, Lookup(Unknown))
}

func TestAllProfilesComplete(t *testing.T) {
	profiles := All()
	require.NotEmpty(t, profiles)

	for _, p := range profiles {
		assert.NotEmpty(t, p.Signatures, p.Name)
		assert.NotEmpty(t, p.StaffPagePaths, p.Name)
		assert.NotEmpty(t, p.CardSelectors, p.Name)
		assert.NotEmpty(t, p.EmailSelectors, p.Name)
		for _, path := range p.StaffPagePaths {
			assert.True(t, strings.HasPrefix(path, "/"), "%s: %s", p.Name, path)
		}
	}
}

func TestGenericPaths(t *testing.T) {
	assert.Contains(t, GenericStaffPaths, "/staff")
	assert.Contains(t, GenericStaffPaths, "/our-team")
	assert.Contains(t, GenericContactPaths, "/contact-us")
	assert.NotEmpty(t, NavKeywords)
	assert.NotEmpty(t, SitemapKeywords)
}
