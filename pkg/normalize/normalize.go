package normalize

import "strings"

var punctuation = strings.NewReplacer(".", "", ",", "", "'", "", `"`, "")

// Name reduces a venue name to a comparable token: lower-cased, whitespace
// collapsed, leading "the " and "@..." annotations removed, common
// punctuation stripped. Two names refer to the same token iff their
// normalized forms are equal. Always returns a value; empty input maps to "".
func Name(text string) string {
	for {
		next := pass(text)
		if next == text {
			return text
		}

		text = next
	}
}

// Same reports whether two raw names normalize to the same token.
func Same(a, b string) bool {
	return Name(a) == Name(b)
}

func pass(text string) string {
	text = strings.ToLower(text)
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimPrefix(text, "the ")

	if at := strings.Index(text, "@"); at >= 0 {
		text = text[:at]
	}

	text = punctuation.Replace(text)

	return strings.TrimSpace(text)
}
