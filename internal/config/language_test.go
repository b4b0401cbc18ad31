package config

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/verustcode/ctreport/pkg/errors"
)

// TestParseLanguage tests ParseLanguage function
func TestParseLanguage(t *testing.T) {
	tests := []struct {
		name     string
		langTag  string
		expected string
	}{
		{"English", "en", "en"},
		{"German with region", "de-AT", "de-AT"},
		{"POSIX locale", "nl_BE.UTF-8", "nl-BE"},
		{"empty defaults to English", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc, err := ParseLanguage(tt.langTag)
			if err != nil {
				t.Fatalf("ParseLanguage(%q) error = %v", tt.langTag, err)
			}
			if lc.String() != tt.expected {
				t.Errorf("ParseLanguage(%q) = %s, want %s", tt.langTag, lc.String(), tt.expected)
			}
		})
	}
}

func TestParseLanguage_Invalid(t *testing.T) {
	_, err := ParseLanguage("not a language")
	if err == nil {
		t.Fatal("expected an error for an invalid tag")
	}
	if !errors.Is(err, errors.ErrCodeConfigInvalid) {
		t.Errorf("got %v, want ConfigInvalid", err)
	}
}

func TestParseLanguage_Auto(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "fr_FR.UTF-8")

	lc, err := ParseLanguage(LanguageAuto)
	if err != nil {
		t.Fatalf("ParseLanguage(auto) error = %v", err)
	}
	if lc.String() != "fr-FR" {
		t.Errorf("detected %s, want fr-FR", lc.String())
	}
}

func TestDetectSystemLanguage_Fallback(t *testing.T) {
	t.Setenv("LC_ALL", "C")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
	t.Setenv("LANGUAGE", "")

	if got := detectSystemLanguage(); got != language.English {
		t.Errorf("detectSystemLanguage() = %s, want en", got)
	}
}

func TestLanguageConfig_DisplayName(t *testing.T) {
	lc, err := ParseLanguage("de")
	if err != nil {
		t.Fatal(err)
	}
	if lc.DisplayName() != "German" {
		t.Errorf("DisplayName() = %s, want German", lc.DisplayName())
	}
	if lc.Tag() != language.German {
		t.Errorf("Tag() = %s, want de", lc.Tag())
	}
}
