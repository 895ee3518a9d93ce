package cli

import "os"

// Directory configuration shared by every command, resolved from the
// environment (loaded from .env by main).
func templateDir() string {
	if d := os.Getenv("SLATE_TEMPLATE_DIR"); d != "" {
		return d
	}
	return "templates"
}

func cacheDir() string {
	if d := os.Getenv("SLATE_CACHE_DIR"); d != "" {
		return d
	}
	return ".slate-cache"
}

func langDir() string {
	if d := os.Getenv("SLATE_LANG_DIR"); d != "" {
		return d
	}
	return "lang"
}
