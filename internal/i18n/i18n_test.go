package i18n

import "testing"

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return b
}

func TestLoadIncludesDefaultLocale(t *testing.T) {
	b := loadBundle(t)

	if !b.Supported(DefaultLocale) {
		t.Fatalf("default locale %q not loaded", DefaultLocale)
	}
	if len(b.Locales()) < 2 {
		t.Errorf("Locales() = %v, want at least en plus one more", b.Locales())
	}
}

func TestLookupDotPath(t *testing.T) {
	b := loadBundle(t)

	if got := b.T("en", "errors.nameRequired"); got != "Field name is required" {
		t.Errorf("T(en, errors.nameRequired) = %q", got)
	}
	if got := b.T("es", "errors.nameRequired"); got == "Field name is required" || got == "errors.nameRequired" {
		t.Errorf("T(es, errors.nameRequired) = %q, want a Spanish translation", got)
	}
}

func TestLookupFallsBackToDefaultLocale(t *testing.T) {
	b := loadBundle(t)

	// An unsupported locale resolves through the default table.
	if got := b.T("de", "errors.nameRequired"); got != "Field name is required" {
		t.Errorf("T(de, ...) = %q, want the English text", got)
	}
}

func TestLookupFallsBackToKey(t *testing.T) {
	b := loadBundle(t)

	tests := []string{
		"errors.noSuchKey",
		"noSuchSection.entry",
		"errors",
	}
	for _, key := range tests {
		if got := b.T("en", key); got != key {
			t.Errorf("T(en, %q) = %q, want the key itself", key, got)
		}
	}
}

func TestAllLocalesCoverValidationMessages(t *testing.T) {
	b := loadBundle(t)

	keys := []string{
		"errors.nameRequired",
		"errors.duplicateName",
		"errors.noFields",
		"errors.sizeExceeded",
		"errors.configMissing",
		"results.error",
		"results.empty",
	}
	for _, locale := range b.Locales() {
		for _, key := range keys {
			if _, ok := lookup(b.locales[locale], key); !ok {
				t.Errorf("locale %q missing %q", locale, key)
			}
		}
	}
}
