// Package i18n resolves user-facing message keys for the active locale.
package i18n

import (
	"context"       // Context for store calls
	"embed"         // Bundled locale files
	"encoding/json" // Locale file decoding
	"fmt"           // Error wrapping
	"io/fs"         // Locale file system
	"sync"          // Message table locking

	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/text/language" // BCP 47 tag parsing
)

// FallbackLang is loaded whenever the requested locale cannot be.
const FallbackLang = "en"

//go:embed locales/*.json
var embedded embed.FS

// Locales returns the bundled locale files.
func Locales() fs.FS {
	sub, _ := fs.Sub(embedded, "locales") // Strip the directory prefix
	return sub
}

// LangStore persists the chosen locale.
type LangStore interface {
	Lang(ctx context.Context) (string, error)
	SetLang(ctx context.Context, lang string) error
}

// Translator holds the messages of one loaded locale.
type Translator struct {
	fsys  fs.FS     // Locale files
	store LangStore // Persisted preference

	mu       sync.RWMutex      // Guards lang and messages
	lang     string            // Active locale
	messages map[string]string // Active message table
}

// New creates a translator reading <lang>.json files from fsys.
func New(fsys fs.FS, store LangStore) *Translator {
	return &Translator{fsys: fsys, store: store, messages: map[string]string{}}
}

// Restore loads the persisted locale.
func (t *Translator) Restore(ctx context.Context) (string, error) {
	lang, err := t.store.Lang(ctx) // Saved preference
	if err != nil {
		logrus.WithError(err).Warn("could not read saved language")
		lang = FallbackLang // Default on failure
	}
	return t.Load(ctx, lang)
}

// Load switches to lang, falling back to English when lang cannot be loaded.
// It returns the locale actually in effect.
func (t *Translator) Load(ctx context.Context, lang string) (string, error) {
	base, messages, err := t.read(lang) // Resolve and decode the locale
	if err != nil {
		logrus.WithError(err).WithField("lang", lang).Warn("Language loading failed")
		if base == FallbackLang {
			return "", err // Even the fallback failed
		}
		return t.Load(ctx, FallbackLang) // Retry with the fallback
	}

	t.mu.Lock()
	t.lang, t.messages = base, messages // Switch atomically
	t.mu.Unlock()

	if err := t.store.SetLang(ctx, base); err != nil {
		return base, fmt.Errorf("save language: %w", err)
	}
	return base, nil
}

// Lang returns the active locale.
func (t *Translator) Lang() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// Translate returns the message for key, or key itself when untranslated.
func (t *Translator) Translate(key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if msg, ok := t.messages[key]; ok && msg != "" {
		return msg // Translated
	}
	return key // Untranslated keys render as themselves
}

func (t *Translator) read(lang string) (string, map[string]string, error) {
	tag, err := language.Parse(lang) // Parse the tag, e.g. tr-TR
	if err != nil {
		return "", nil, fmt.Errorf("parse %q: %w", lang, err)
	}
	base, _ := tag.Base() // Language without region
	code := base.String()

	raw, err := fs.ReadFile(t.fsys, code+".json") // Read <lang>.json
	if err != nil {
		return code, nil, fmt.Errorf("could not load %s.json: %w", code, err)
	}
	messages := map[string]string{} // Decoded messages
	if err := json.Unmarshal(raw, &messages); err != nil {
		return code, nil, fmt.Errorf("decode %s.json: %w", code, err)
	}
	return code, messages, nil
}
