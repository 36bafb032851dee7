package deck

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// StripHTML removes markup and decodes entities using the standard HTML tokenizer.
// Block-level tags become a single space so adjacent words do not fuse.
func StripHTML(input string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var textBuilder strings.Builder
	inScript := false
	inStyle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() != io.EOF {
				// Malformed markup: keep what we have plus the unparsed rest.
				textBuilder.Write(tokenizer.Raw())
			}
			return textBuilder.String()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script":
				inScript = tokenType == html.StartTagToken
			case "style":
				inStyle = tokenType == html.StartTagToken
			case "br", "p", "div", "li", "tr", "td":
				textBuilder.WriteByte(' ')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script":
				inScript = false
			case "style":
				inStyle = false
			case "p", "div", "li", "tr", "td":
				textBuilder.WriteByte(' ')
			}

		case html.TextToken:
			if !inScript && !inStyle {
				textBuilder.Write(tokenizer.Text())
			}
		}
	}
}

// NormaliseForMatching prepares question text for tokenisation.
func NormaliseForMatching(input string) string {
	return strings.TrimSpace(strings.ToLower(cleanText(StripHTML(input))))
}

// NormaliseForDisplay escapes angle brackets so raw markup never renders.
func NormaliseForDisplay(input string) string {
	escaped := strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(input)
	return strings.TrimSpace(escaped)
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
