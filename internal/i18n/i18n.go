// Package i18n resolves translation keys to display strings. Locale tables
// are embedded JSON documents with nested keys addressed by dot paths
// ("errors.duplicateName"). Lookup falls back to the default locale and
// finally to the key itself, so a missing entry degrades to something
// greppable instead of an empty string.
//
// The rest of the application operates on symbolic codes and enum values;
// this package is only consulted at the rendering edge.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed locales/*.json
var localeFiles embed.FS

// DefaultLocale is the fallback for unknown locales and missing keys.
const DefaultLocale = "en"

// Bundle holds the loaded locale tables.
type Bundle struct {
	locales map[string]map[string]any
}

// Load parses all embedded locale tables.
func Load() (*Bundle, error) {
	entries, err := localeFiles.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	b := &Bundle{locales: make(map[string]map[string]any)}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		data, err := localeFiles.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		var table map[string]any
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		b.locales[name] = table
	}

	if _, ok := b.locales[DefaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q missing", DefaultLocale)
	}
	return b, nil
}

// Locales returns the loaded locale names.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for name := range b.locales {
		out = append(out, name)
	}
	return out
}

// Supported reports whether a locale table is loaded.
func (b *Bundle) Supported(locale string) bool {
	_, ok := b.locales[locale]
	return ok
}

// T resolves key in the given locale, falling back to the default locale and
// then to the key itself.
func (b *Bundle) T(locale, key string) string {
	if table, ok := b.locales[locale]; ok {
		if v, ok := lookup(table, key); ok {
			return v
		}
	}
	if locale != DefaultLocale {
		if v, ok := lookup(b.locales[DefaultLocale], key); ok {
			return v
		}
	}
	return key
}

// lookup walks a dot-separated path through nested tables.
func lookup(table map[string]any, key string) (string, bool) {
	parts := strings.Split(key, ".")
	var cur any = table
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[p]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}
