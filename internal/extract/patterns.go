package extract

import "regexp"

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+(?:[1-9]\d{0,3})[\s\-]?(?:\d{1,5}[\s\-]?){2,8}\d{1,5}`),
		regexp.MustCompile(`\(?\d{1,4}\)?[\s\-.]?\d{2,5}[\s\-.]?\d{1,5}[\s\-.]?\d{1,5}`),
	}

	nonDigit = regexp.MustCompile(`\D`)
)

// Emails that match but are never real contact addresses: placeholder
// domains, asset filenames picked up from srcset-style attributes, and
// transactional senders.
var junkEmailSubstrings = []string{
	"example.com",
	"@example",
	"yourdomain",
	"youremail",
	"sampleemail",
	"noreply",
	"no-reply",
	".png",
	".jpg",
	".jpeg",
	".gif",
	".svg",
	".webp",
}

// Phone candidates must carry this many digits to be accepted.
const (
	phoneMinDigits = 9
	phoneMaxDigits = 15
)
