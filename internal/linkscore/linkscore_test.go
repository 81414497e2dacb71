package linkscore

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	keywords := []string{"contact", "about"}

	tests := []struct {
		name string
		link Link
		want int
	}{
		{
			name: "keyword in text only",
			link: Link{Text: "Contact us", Href: "https://acme.lt/page"},
			want: 10,
		},
		{
			name: "keyword in href only",
			link: Link{Text: "Get in touch", Href: "https://acme.lt/contact"},
			want: 5,
		},
		{
			name: "keyword in text and href",
			link: Link{Text: "Contact", Href: "https://acme.lt/contact"},
			want: 15,
		},
		{
			name: "two keywords in text and href",
			link: Link{Text: "About / Contact", Href: "https://acme.lt/about-contact"},
			want: 30,
		},
		{
			name: "case insensitive",
			link: Link{Text: "CONTACT", Href: "https://acme.lt/CONTACT"},
			want: 15,
		},
		{
			name: "no match",
			link: Link{Text: "Products", Href: "https://acme.lt/products"},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.link, keywords))
		})
	}
}

func TestBestPicksHighestScore(t *testing.T) {
	links := []Link{
		{Text: "Products", Href: "https://acme.lt/products"},
		{Text: "Get in touch", Href: "https://acme.lt/contact"}, // href only: 5
		{Text: "Contact us", Href: "https://acme.lt/contact"},   // text+href: 15
	}

	best, score, ok := Best("https://acme.lt/", links, DefaultKeywords)
	require.True(t, ok)
	assert.Equal(t, "Contact us", best.Text)
	assert.Equal(t, 15, score)
}

func TestBestTieKeepsFirstSeen(t *testing.T) {
	links := []Link{
		{Text: "Contact sales", Href: "https://acme.lt/sales"},
		{Text: "Contact support", Href: "https://acme.lt/support"},
	}

	// Run repeatedly: the pick must be reproducible.
	for i := 0; i < 10; i++ {
		best, score, ok := Best("https://acme.lt/", links, []string{"contact"})
		require.True(t, ok)
		assert.Equal(t, "Contact sales", best.Text)
		assert.Equal(t, 10, score)
	}
}

func TestBestNoPositiveScore(t *testing.T) {
	links := []Link{
		{Text: "Products", Href: "https://acme.lt/products"},
		{Text: "News", Href: "https://acme.lt/news"},
	}

	_, _, ok := Best("https://acme.lt/", links, DefaultKeywords)
	assert.False(t, ok)
}

func TestBestIgnoresIneligibleLinks(t *testing.T) {
	// The only contact-scoring links are ineligible; a same-domain page
	// without keywords must not be picked either.
	links := []Link{
		{Text: "Contact", Href: "mailto:info@acme.lt"},
		{Text: "Contact", Href: "tel:+37061234567"},
		{Text: "Contact", Href: "javascript:void(0)"},
		{Text: "Contact", Href: "#contact"},
		{Text: "Contact", Href: "https://partner.example.org/contact"},
	}

	_, _, ok := Best("https://acme.lt/", links, DefaultKeywords)
	assert.False(t, ok)
}

func TestEligible(t *testing.T) {
	base, err := url.Parse("https://acme.lt/home")
	require.NoError(t, err)

	tests := []struct {
		href string
		want bool
	}{
		{"https://acme.lt/contact", true},
		{"http://acme.lt/contact", true},
		{"https://ACME.lt/contact", true},
		{"/contact", true}, // relative resolves against base
		{"https://other.example.org/contact", false},
		{"mailto:info@acme.lt", false},
		{"MAILTO:info@acme.lt", false},
		{"tel:+37061234567", false},
		{"javascript:void(0)", false},
		{"#top", false},
		{"", false},
		{"ftp://acme.lt/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(base, tt.href))
		})
	}
}
