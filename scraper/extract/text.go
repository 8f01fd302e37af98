package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// CollapseSpace trims s and folds whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// QualityLabels is checked in order; the first label found in the text wins.
var QualityLabels = []string{"2160p", "4K", "1080p", "720p", "480p", "360p"}

var LanguageLabels = []string{
	"Dual Audio", "Multi Audio", "Hindi", "English", "Tamil", "Telugu",
	"Malayalam", "Kannada", "Bengali", "Punjabi", "Korean", "Japanese",
}

func firstLabel(text string, labels []string) string {
	lower := strings.ToLower(text)
	for _, l := range labels {
		if strings.Contains(lower, strings.ToLower(l)) {
			return l
		}
	}
	return ""
}

func DetectQuality(text string) string { return firstLabel(text, QualityLabels) }

func DetectLanguage(text string) string { return firstLabel(text, LanguageLabels) }

var sizeRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(TB|GB|MB|KB)\b`)

// DetectSize returns the first size token such as "1.4 GB". Units are not converted.
func DetectSize(text string) string {
	m := sizeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", m[1], strings.ToUpper(m[2]))
}
