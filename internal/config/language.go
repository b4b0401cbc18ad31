package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/verustcode/ctreport/pkg/errors"
)

// LanguageAuto selects the language from the LANG family of variables
const LanguageAuto = "auto"

// LanguageConfig wraps the language tag of the rendered report
type LanguageConfig struct {
	tag language.Tag
}

// ParseLanguage parses a BCP 47 tag. Empty means English; "auto" detects
// the system language. POSIX locales such as en_US.UTF-8 are accepted.
func ParseLanguage(langTag string) (*LanguageConfig, error) {
	switch strings.TrimSpace(langTag) {
	case "":
		return &LanguageConfig{tag: language.English}, nil
	case LanguageAuto:
		return &LanguageConfig{tag: detectSystemLanguage()}, nil
	}

	tag, err := language.Parse(localeToTag(langTag))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid language %q", langTag), err)
	}
	return &LanguageConfig{tag: tag}, nil
}

// Tag returns the underlying language tag
func (lc *LanguageConfig) Tag() language.Tag {
	return lc.tag
}

// String returns the language tag as a string (e.g., "en", "de-AT")
func (lc *LanguageConfig) String() string {
	return lc.tag.String()
}

// DisplayName returns the English name of the language (e.g., "German")
func (lc *LanguageConfig) DisplayName() string {
	if name := display.English.Tags().Name(lc.tag); name != "" {
		return name
	}
	return lc.tag.String()
}

// localeToTag converts "en_US.UTF-8" to "en-US"
func localeToTag(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Split(s, ".")[0]
	return strings.Replace(s, "_", "-", 1)
}

// detectSystemLanguage attempts to detect the system language from environment variables
func detectSystemLanguage() language.Tag {
	for _, envVar := range []string{"LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"} {
		val := os.Getenv(envVar)
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		if tag, err := language.Parse(localeToTag(val)); err == nil {
			return tag
		}
	}
	return language.English
}
