package host

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Locales lists the languages guest code can be told about. The locale
// register holds the index of the closest match.
var Locales = []language.Tag{
	language.English, // default
	language.French,
	language.German,
	language.Spanish,
	language.Italian,
	language.Portuguese,
	language.Dutch,
	language.Japanese,
	language.Korean,
	language.SimplifiedChinese,
	language.TraditionalChinese,
	language.Russian,
	language.Polish,
	language.Swedish,
}

var matcher = language.NewMatcher(Locales)

// LocaleID returns the Locales index closest to the BCP 47 or POSIX
// locale name (for example "de-AT" or "pt_BR.UTF-8"). Unknown or empty
// names map to 0.
func LocaleID(name string) byte {
	name = posixToBCP47(name)
	if name == "" {
		return 0
	}
	tag, err := language.Parse(name)
	if err != nil {
		return 0
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return 0
	}
	return byte(idx)
}

func posixToBCP47(s string) string {
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "C" || s == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(s, "_", "-")
}

// DetectLocale reads the locale from the environment the way POSIX tools
// do: LC_ALL, then LC_MESSAGES, then LANG.
func DetectLocale() byte {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(k); v != "" {
			return LocaleID(v)
		}
	}
	return 0
}
