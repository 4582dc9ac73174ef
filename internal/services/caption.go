package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormatCaption builds the Instagram caption: slogan, social post, a trend
// line and the fixed hashtag set plus the trend as a hashtag. The hero
// concept is left out; it reads like a script.
func FormatCaption(slogan, socialPost, trend string) string {
	parts := []string{
		"🎨 " + slogan,
		"",
		socialPost,
		"",
		fmt.Sprintf("✨ Celebrating %s with Real Magic moments", trend),
		"",
		"#CocaCola #RealMagic #CokeSense #" + TrendHashtag(trend) + " #Marketing #AICreative",
	}
	return TruncateCaption(strings.Join(parts, "\n"))
}

// TrendHashtag strips everything but letters and digits.
func TrendHashtag(trend string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, trend)
}

// TruncateCaption cuts s to MaxCaptionLength runes.
func TruncateCaption(s string) string {
	return truncateRunes(s, MaxCaptionLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// PostSummary is the caption prefix kept in post history.
func PostSummary(caption string) string {
	return truncateRunes(caption, 200)
}
