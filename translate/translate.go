// Package translate formats user-visible messages for the host locale.
package translate

import (
	"log"
	"sync/atomic"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DEFAULT_LOCALE = "en-US" // Used when the host reports no locale.

var printer atomic.Pointer[message.Printer]

var current atomic.Value // language.Tag

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("aqa32: locale: %v", err)
	}

	SetLocale(locales...)
}

// SetLocale selects the best match for the preferred locales, in order.
// With no locales, the default locale is used.
func SetLocale(locales ...string) {
	if len(locales) == 0 {
		locales = []string{DEFAULT_LOCALE}
	}

	tag := message.MatchLanguage(locales...)
	current.Store(tag)
	printer.Store(message.NewPrinter(tag))
}

// Locale returns the selected locale.
func Locale() language.Tag {
	return current.Load().(language.Tag)
}

// From formats an en-US Sprintf() style key for the selected locale.
func From(key message.Reference, args ...any) string {
	return printer.Load().Sprintf(key, args...)
}
