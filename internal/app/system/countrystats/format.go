package countrystats

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is shown in place of a counter that has no value yet.
const Placeholder = "..."

// Formatter renders counts with the digit grouping of one locale.
type Formatter struct {
	mu      sync.Mutex
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter returns a Formatter for a BCP 47 locale such as "en" or "de-DE".
func NewFormatter(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid number locale %q: %w", locale, err)
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}, nil
}

// MustFormatter is NewFormatter for locales known to be valid.
func MustFormatter(locale string) *Formatter {
	f, err := NewFormatter(locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Count formats n with grouped digits, e.g. 1234567 -> "1,234,567" for "en".
func (f *Formatter) Count(n int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.printer.Sprintf("%d", n)
}
