package companies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.smithhonda.com/about-us", "smithhonda.com"},
		{"http://smithhonda.com", "smithhonda.com"},
		{"smithhonda.com", "smithhonda.com"},
		{"WWW.SmithHonda.COM", "smithhonda.com"},
		{"sales.smithhonda.com", "sales.smithhonda.com"},
	}
	for _, tt := range tests {
		got, err := ExtractDomain(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "localhost", "x.", "not a url"} {
		_, err := ExtractDomain(bad)
		assert.ErrorIs(t, err, ErrInvalidDomain, bad)
	}
}

func TestRegistrableDomain(t *testing.T) {
	got, err := RegistrableDomain("www.smithhonda.com")
	require.NoError(t, err)
	assert.Equal(t, "smithhonda.com", got)

	got, err = RegistrableDomain("sales.example.co.uk")
	require.NoError(t, err)
	assert.Equal(t, "example.co.uk", got)

	_, err = RegistrableDomain("com")
	assert.ErrorIs(t, err, ErrInvalidDomain)
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, "Smith Honda", DeriveName("smith-honda.com"))
	assert.Equal(t, "Smithhonda", DeriveName("smithhonda.com"))
	assert.Equal(t, "Valley Auto Group", DeriveName("valley_auto_group.net"))
	assert.Empty(t, DeriveName(""))
}
