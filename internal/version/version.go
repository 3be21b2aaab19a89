package version

// Build metadata, overridable via -ldflags at release time.
var (
	Version = "v1.9.0"
	BuiltAt = "dev"
)

// Meta returns the build descriptor included in /session and /health payloads.
func Meta() map[string]string {
	return map[string]string{
		"service": "voicerelay",
		"version": Version,
		"builtAt": BuiltAt,
	}
}
