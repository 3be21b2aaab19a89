package language

import "strings"

// Descriptor is the canonical tuple for a supported output language.
type Descriptor struct {
	Code string `json:"code"`
	UI   string `json:"ui"`
	Name string `json:"name"`
}

// DefaultCode is used when neither the request nor the configuration names a
// usable language.
const DefaultCode = "ja"

var descriptors = map[string]Descriptor{
	"en": {Code: "en", UI: "EN", Name: "English"},
	"ja": {Code: "ja", UI: "JP", Name: "Japanese"},
	"zh": {Code: "zh", UI: "CN", Name: "Chinese"},
	"fr": {Code: "fr", UI: "FR", Name: "French"},
	"es": {Code: "es", UI: "ES", Name: "Spanish"},
}

// aliases maps common spellings, locale tags and native-script names onto
// canonical codes.
var aliases = map[string]string{
	"jp": "ja", "ja-jp": "ja", "japanese": "ja", "日本語": "ja",
	"en-us": "en", "en-gb": "en", "english": "en",
	"cn": "zh", "zh-cn": "zh", "chinese": "zh", "中文": "zh",
	"fra": "fr", "french": "fr", "français": "fr",
	"spa": "es", "spanish": "es", "español": "es",
}

// Resolve maps an arbitrary token onto a supported Descriptor. Resolution
// order: exact code, alias table, configured default, built-in default. It
// never fails.
func Resolve(raw, defaultCode string) Descriptor {
	if s := strings.ToLower(strings.TrimSpace(raw)); s != "" {
		if d, ok := descriptors[s]; ok {
			return d
		}
		if code, ok := aliases[s]; ok {
			return descriptors[code]
		}
	}
	if d, ok := descriptors[strings.ToLower(strings.TrimSpace(defaultCode))]; ok {
		return d
	}
	return descriptors[DefaultCode]
}

// Supported reports whether code is a canonical language code.
func Supported(code string) bool {
	_, ok := descriptors[code]
	return ok
}
