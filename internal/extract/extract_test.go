package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>UAB Acme</title>
<style>body { color: #333; } /* styles@ignored.lt */</style>
<script>var tracker = "bot@tracker.net";</script>
</head>
<body>
<header><a href="mailto:info%40acme.lt?subject=Hello">Write us</a></header>
<main>
<p>Sales: sales@acme.lt</p>
<p>Call us: +370 612 34567 or (8 5) 212 3456 78</p>
<a href="tel:+370%20612%2034567">Call</a>
<img src="logo@2x.png">
</main>
<noscript>noscript@hidden.lt</noscript>
</body>
</html>`

func TestRegexExtract(t *testing.T) {
	var ex RegexExtractor
	res, err := ex.Extract(context.Background(), "https://acme.lt", samplePage)
	require.NoError(t, err)

	assert.Contains(t, res.Emails, "info@acme.lt", "mailto anchor should be decoded")
	assert.Contains(t, res.Emails, "sales@acme.lt", "visible text should be scanned")
	assert.NotContains(t, res.Emails, "bot@tracker.net", "script content must be stripped")
	assert.NotContains(t, res.Emails, "styles@ignored.lt", "style content must be stripped")
	assert.NotContains(t, res.Emails, "noscript@hidden.lt", "noscript content must be stripped")

	assert.Contains(t, res.Phones, "+370 612 34567")
}

func TestRegexExtractIdempotent(t *testing.T) {
	var ex RegexExtractor
	first, err := ex.Extract(context.Background(), "https://acme.lt", samplePage)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := ex.Extract(context.Background(), "https://acme.lt", samplePage)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRegexExtractNothingFound(t *testing.T) {
	var ex RegexExtractor
	res, err := ex.Extract(context.Background(), "https://acme.lt", "<html><body><p>Welcome!</p></body></html>")
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestPhoneDigitBounds(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		found bool
	}{
		{"ten digit landline", "<p>Tel: 852 123 456 7</p>", true},
		{"valid mobile", "<p>Tel: +370 612 34567</p>", true},
		{"too few digits", "<p>Tel: 12 34</p>", false},
		{"too many digits", "<p>Ref: 1234 5678 9012 34567</p>", false},
	}

	var ex RegexExtractor
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ex.Extract(context.Background(), "", tt.html)
			require.NoError(t, err)
			if tt.found {
				assert.NotEmpty(t, res.Phones)
			} else {
				for _, p := range res.Phones {
					digits := nonDigit.ReplaceAllString(p, "")
					assert.GreaterOrEqual(t, len(digits), phoneMinDigits)
					assert.LessOrEqual(t, len(digits), phoneMaxDigits)
				}
			}
		})
	}
}

func TestJunkEmailsFiltered(t *testing.T) {
	html := `<body>
	<p>test@example.com</p>
	<p>noreply@acme.lt</p>
	<p>icon@2x.png@srcset.lt</p>
	<p>real.person@acme.lt</p>
	</body>`

	var ex RegexExtractor
	res, err := ex.Extract(context.Background(), "", html)
	require.NoError(t, err)
	assert.Equal(t, []string{"real.person@acme.lt"}, res.Emails)
}

func TestMergeDeduplicates(t *testing.T) {
	home := Result{
		Emails: []string{"info@acme.lt", "sales@acme.lt"},
		Phones: []string{"+370 612 34567"},
	}
	contact := Result{
		Emails: []string{"INFO@acme.lt", "hr@acme.lt"},
		Phones: []string{"+370612 34567", "+370 5 212 3456"},
	}

	merged := Merge(home, contact)
	assert.Equal(t, []string{"info@acme.lt", "sales@acme.lt", "hr@acme.lt"}, merged.Emails)
	// Same digit sequence spelled differently is one phone number.
	assert.Equal(t, []string{"+370 612 34567", "+370 5 212 3456"}, merged.Phones)
}

func TestMergeOrderIndependentSets(t *testing.T) {
	a := Result{Emails: []string{"a@acme.lt"}, Phones: []string{"+370 612 34567"}}
	b := Result{Emails: []string{"b@acme.lt"}}

	ab := Merge(a, b)
	ba := Merge(b, a)
	assert.ElementsMatch(t, ab.Emails, ba.Emails)
	assert.ElementsMatch(t, ab.Phones, ba.Phones)
}

func TestCleanText(t *testing.T) {
	text := CleanText(samplePage, 0)
	assert.Contains(t, text, "Sales: sales@acme.lt")
	assert.NotContains(t, text, "tracker")
	assert.NotContains(t, text, "color: #333")

	truncated := CleanText(samplePage, 10)
	assert.Len(t, truncated, 10)
}
