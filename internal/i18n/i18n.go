// Package i18n resolves message keys to user-visible text. All other
// packages traffic only in keys; this is the single point where a key
// becomes a string. It wraps gotext with embedded catalogs; an unknown
// key passes through unchanged (standard gettext behavior).
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the compiled translation files.
// Directory structure: locales/{lang}/LC_MESSAGES/doc-translator.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name for the app.
const domain = "doc-translator"

// po is the gotext locale object used for lookups.
var po *gotext.Locale

// Init initializes the catalog. If lang is empty it auto-detects from
// LANGUAGE, LC_ALL, LC_MESSAGES, LANG in GNU gettext priority order.
// Call once at startup before any T calls.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T resolves a message key to localized text. Without Init, or for an
// unknown key, the key itself is returned.
func T(key string) string {
	if po == nil {
		return key
	}
	return po.Get(key)
}

// detectLanguage reads environment variables following gettext rules.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			if idx := strings.IndexAny(val, ".:@"); idx >= 0 {
				val = val[:idx]
			}
			return val
		}
	}
	return "en"
}
