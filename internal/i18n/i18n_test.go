package i18n

import "testing"

func TestInitAndAvailableLocales(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Fatalf("expected lang 'en', got %q", GetLang())
	}
	av := GetAvailableLocales()
	for _, k := range []string{"en", "de"} {
		if _, ok := av[k]; !ok {
			t.Fatalf("expected available locale %q to be present, got %v", k, av)
		}
	}
	if langs := Languages(); len(langs) < 2 || langs[0] != "de" {
		t.Fatalf("expected sorted languages starting with de, got %v", langs)
	}
}

func TestT_BasicAndFormatting(t *testing.T) {
	Init("en")
	if got := T("summary.none"); got != "none" {
		t.Fatalf("expected 'none', got %q", got)
	}
	if got := T("analyze.files_found", 7); got != "Found 7 source files" {
		t.Fatalf("unexpected formatted translation: %q", got)
	}

	SetLang("de")
	defer Init("en")
	if GetLang() != "de" {
		t.Fatalf("expected lang 'de', got %q", GetLang())
	}
	if got := T("summary.none"); got != "keine" {
		t.Fatalf("expected German 'keine', got %q", got)
	}
}

func TestT_MissingMessageReturnsID(t *testing.T) {
	Init("en")
	if got := T("does.not.exist"); got != "does.not.exist" {
		t.Fatalf("expected message ID fallback, got %q", got)
	}
}

func TestT_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	Init("fr")
	defer Init("en")
	if got := T("summary.none"); got != "none" {
		t.Fatalf("expected English fallback, got %q", got)
	}
}

func TestLocales_HaveSameKeys(t *testing.T) {
	en := loadKeys(t, "locales/en.yaml")
	de := loadKeys(t, "locales/de.yaml")
	for k := range en {
		if _, ok := de[k]; !ok {
			t.Errorf("de.yaml is missing %q", k)
		}
	}
	for k := range de {
		if _, ok := en[k]; !ok {
			t.Errorf("en.yaml has no %q", k)
		}
	}
}
