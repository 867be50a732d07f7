// Package locale provides the localized strings shown to chat users.
// Translation tables are YAML files embedded at build time, one per
// language code, mirroring the layout of the bot's config language
// setting. Lookups use dotted keys ("messages.AddSuccess").
package locale

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed translations/*.yaml
var translationFiles embed.FS

// DefaultLanguage is used when a requested language has no table.
const DefaultLanguage = "en-us"

// SupportedLanguages is the set of language codes the config accepts.
var SupportedLanguages = []string{
	"de-de", "en-us", "es-es", "fr-fr", "it-it",
	"nl-be", "pl-pl", "pt-pt", "ru-ru",
}

// Translator resolves message keys for one configured language.
type Translator struct {
	lang     string
	table    map[string]string
	fallback map[string]string
}

// Load reads the translation table for lang, falling back to the
// default language for any key (or the whole table) that is missing.
func Load(lang string) (*Translator, error) {
	fallback, err := loadTable(DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to load default translations: %w", err)
	}

	table := fallback
	if lang != DefaultLanguage {
		if t, err := loadTable(lang); err == nil {
			table = t
		}
	}

	return &Translator{lang: lang, table: table, fallback: fallback}, nil
}

// Language returns the configured language code.
func (t *Translator) Language() string {
	return t.lang
}

// T returns the localized string for a dotted key. Unknown keys are
// returned verbatim so a missing translation is visible, not fatal.
func (t *Translator) T(key string) string {
	if s, ok := t.table[key]; ok {
		return s
	}
	if s, ok := t.fallback[key]; ok {
		return s
	}
	return key
}

// Tf returns the localized string for key with %{name} placeholders
// substituted from vars.
func (t *Translator) Tf(key string, vars map[string]string) string {
	s := t.T(key)
	for name, value := range vars {
		s = strings.ReplaceAll(s, "%{"+name+"}", value)
	}
	return s
}

func loadTable(lang string) (map[string]string, error) {
	raw, err := translationFiles.ReadFile("translations/" + lang + ".yaml")
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid translation file for %s: %w", lang, err)
	}

	// Files are rooted at the language code, like the original
	// translation bundles.
	root, ok := doc[lang].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("translation file for %s has no %q root", lang, lang)
	}

	table := make(map[string]string)
	flatten("", root, table)
	return table, nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for key, value := range node {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case string:
			out[full] = v
		case map[string]interface{}:
			flatten(full, v, out)
		default:
			out[full] = fmt.Sprintf("%v", v)
		}
	}
}
