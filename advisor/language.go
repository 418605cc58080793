package advisor

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is a response language code.
type Language string

const (
	Hindi      Language = "hi"
	English    Language = "en"
	Marathi    Language = "mr"
	Rajasthani Language = "rj"
)

// DefaultLanguage is used when a request names no language.
const DefaultLanguage = Hindi

var byBase = map[string]Language{
	"hi":  Hindi,
	"en":  English,
	"mr":  Marathi,
	"raj": Rajasthani,
}

var names = map[Language]string{
	Hindi:      "Hindi",
	English:    "English",
	Marathi:    "Marathi",
	Rajasthani: "Rajasthani",
}

// ParseLanguage parses an application code ("hi", "en", "mr", "rj") or any
// BCP 47 tag whose base language is supported, such as "hi-IN" or "raj".
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(Rajasthani)) {
		return Rajasthani, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
	base, _ := tag.Base()
	if l, ok := byBase[base.String()]; ok {
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

// String returns the application code.
func (l Language) String() string {
	return string(l)
}

// Tag returns the BCP 47 tag.
func (l Language) Tag() language.Tag {
	if l == Rajasthani {
		return language.MustParse("raj")
	}
	return language.Make(string(l))
}

// Name returns the English name used in prompts.
func (l Language) Name() string {
	if n, ok := names[l]; ok {
		return n
	}
	return names[English]
}

// Voice returns the prebuilt speech voice for l.
func (l Language) Voice() string {
	if l == Hindi {
		return "Kore"
	}
	return "Puck"
}
