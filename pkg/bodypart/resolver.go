// Package bodypart resolves free-text exercise names to coarse body part tags.
//
// Names come from users in several languages with inconsistent spacing, so
// resolution is an ordered cascade of matchers where the first hit wins:
//
//  1. exact catalog key (raw, spaces as "-", spaces removed)
//  2. exact catalog name
//  3. case-insensitive substring against catalog keys and names
//  4. translation table, resolving the translated name once
//  5. static table of canonical English names (exact, then substring)
//
// Anything else is Other.
package bodypart

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/fitsocial/fitsocial-server/pkg/catalog"
)

// CatalogSource supplies the current exercise catalog. It must not fail.
type CatalogSource interface {
	Get(ctx context.Context) *catalog.Catalog
}

// matcher is one step of the cascade.
type matcher func(name string, cat *catalog.Catalog) (string, bool)

var catalogMatchers = []matcher{
	matchCatalogKey,
	matchCatalogName,
	matchCatalogSubstring,
}

type Resolver struct {
	catalog CatalogSource
	logger  *slog.Logger
}

func NewResolver(src CatalogSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		catalog: src,
		logger:  logger.With("component", "bodypart"),
	}
}

// Resolve never fails; unknown names resolve to Other.
func (r *Resolver) Resolve(ctx context.Context, exerciseName string) string {
	return r.resolve(ctx, exerciseName, true)
}

func (r *Resolver) resolve(ctx context.Context, name string, translate bool) string {
	if strings.TrimSpace(name) == "" {
		return Other
	}

	cat := r.catalog.Get(ctx)
	for _, m := range catalogMatchers {
		if part, ok := m(name, cat); ok {
			return part
		}
	}

	if translate {
		if english, ok := translateName(name); ok {
			if part := r.resolve(ctx, english, false); part != Other {
				return part
			}
		}
	}

	if part, ok := matchDirect(name); ok {
		return part
	}

	r.logger.Debug("No body part match", "exercise", name)
	return Other
}

func matchCatalogKey(name string, cat *catalog.Catalog) (string, bool) {
	for _, v := range keyVariants(name) {
		if def, ok := cat.Lookup(v); ok && def.Part != "" {
			return def.Part, true
		}
	}
	return "", false
}

func matchCatalogName(name string, cat *catalog.Catalog) (string, bool) {
	for _, def := range cat.Items() {
		if def.Name == name && def.Part != "" {
			return def.Part, true
		}
	}
	return "", false
}

func matchCatalogSubstring(name string, cat *catalog.Catalog) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, def := range cat.Items() {
		if def.Part == "" {
			continue
		}
		if overlaps(needle, strings.ToLower(def.Key)) || overlaps(needle, strings.ToLower(def.Name)) {
			return def.Part, true
		}
	}
	return "", false
}

func translateName(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if english, ok := translations[trimmed]; ok {
		return english, true
	}
	english, ok := translations[removeSpaces(trimmed)]
	return english, ok
}

func matchDirect(name string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, v := range keyVariants(lower) {
		if part, ok := directIndex[v]; ok {
			return part, true
		}
	}
	for _, m := range directMappings {
		if overlaps(lower, m.Name) {
			return m.Part, true
		}
	}
	return "", false
}

// keyVariants returns s, s with whitespace runs as "-", and s without whitespace.
// strings.Fields also trims the ends and collapses runs into a single "-".
func keyVariants(s string) []string {
	return []string{s, strings.Join(strings.Fields(s), "-"), removeSpaces(s)}
}

func removeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// overlaps reports whether either string contains the other. Empty strings
// never overlap.
func overlaps(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
