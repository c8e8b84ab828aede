// Package i18n renders message templates into localized display strings.
package i18n

import (
	"fmt"
	"strings"

	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/text/language"
)

// DefaultLocale is used when no requested locale is supported.
const DefaultLocale = "en"

// Catalog maps template ids and parameters to localized strings.
type Catalog struct {
	uni      *ut.UniversalTranslator
	fallback string
}

// NewCatalog creates a catalog supporting English and German.
func NewCatalog() *Catalog {
	english := en.New()
	return &Catalog{
		uni:      ut.New(english, english, de.New()),
		fallback: DefaultLocale,
	}
}

// Load registers templates keyed by locale then template id. Later loads
// override earlier ones.
func (c *Catalog) Load(templates map[string]map[string]string) error {
	for locale, entries := range templates {
		trans, found := c.uni.GetTranslator(locale)
		if !found {
			return fmt.Errorf("unsupported locale %q", locale)
		}
		for id, text := range entries {
			if err := trans.Add(id, text, true); err != nil {
				return fmt.Errorf("failed to add template %s/%s: %w", locale, id, err)
			}
		}
	}
	return nil
}

// Render returns the template id rendered for locale. A regional locale such
// as de_DE falls back to its base language, then to the default locale, then
// to the bare id.
func (c *Catalog) Render(locale, id string, params ...string) string {
	trans, _ := c.uni.FindTranslator(locale, baseLanguage(locale), c.fallback)
	if s, ok := translate(trans, id, params); ok {
		return s
	}
	if trans.Locale() != c.fallback {
		fb, _ := c.uni.GetTranslator(c.fallback)
		if s, ok := translate(fb, id, params); ok {
			return s
		}
	}
	return id
}

func baseLanguage(locale string) string {
	if i := strings.IndexAny(locale, "_-"); i > 0 {
		return locale[:i]
	}
	return locale
}

// translate guards against templates with more placeholders than params.
func translate(trans ut.Translator, id string, params []string) (s string, ok bool) {
	defer func() {
		if recover() != nil {
			s, ok = "", false
		}
	}()
	out, err := trans.T(id, params...)
	if err != nil {
		return "", false
	}
	return out, true
}

// FromAcceptLanguage picks the first language of an Accept-Language header
// as a base locale such as "de". Unparseable headers yield DefaultLocale.
func FromAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	base, _ := tags[0].Base()
	return strings.ToLower(base.String())
}
