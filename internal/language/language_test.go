package language

import "testing"

func TestResolveCanonicalCodes(t *testing.T) {
	for _, code := range []string{"en", "ja", "zh", "fr", "es"} {
		got := Resolve(code, "en")
		if got.Code != code {
			t.Fatalf("Resolve(%q) = %q, want %q", code, got.Code, code)
		}
	}
}

func TestResolveAliases(t *testing.T) {
	cases := map[string]string{
		"jp":          "ja",
		"JA-JP":       "ja",
		" Japanese ":  "ja",
		"日本語":         "ja",
		"en-US":       "en",
		"English":     "en",
		"cn":          "zh",
		"ZH-CN":       "zh",
		"中文":          "zh",
		"français":    "fr",
		"FRA":         "fr",
		"Español":     "es",
		"spa":         "es",
	}
	for raw, want := range cases {
		got := Resolve(raw, "en")
		if got.Code != want {
			t.Fatalf("Resolve(%q) = %q, want %q", raw, got.Code, want)
		}
		if got != Resolve(want, "en") {
			t.Fatalf("alias %q descriptor differs from canonical %q", raw, want)
		}
	}
}

func TestResolveUnknownFallsBackToDefault(t *testing.T) {
	got := Resolve("klingon", "es")
	if got.Code != "es" {
		t.Fatalf("unknown token should resolve to configured default, got %q", got.Code)
	}
}

func TestResolveAbsentFallsBackToDefault(t *testing.T) {
	got := Resolve("", "fr")
	if got.Code != "fr" {
		t.Fatalf("absent token should resolve to configured default, got %q", got.Code)
	}
}

func TestResolveBadDefaultFallsBackToBuiltin(t *testing.T) {
	got := Resolve("", "nope")
	if got.Code != DefaultCode {
		t.Fatalf("unusable default should resolve to %q, got %q", DefaultCode, got.Code)
	}
}

func TestDescriptorFields(t *testing.T) {
	got := Resolve("ja", "en")
	if got.UI != "JP" || got.Name != "Japanese" {
		t.Fatalf("unexpected descriptor: %+v", got)
	}
}
