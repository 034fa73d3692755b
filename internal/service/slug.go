package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vuxmai/catalog-admin/internal/repository"
)

// SlugAllocator derives a unique, URL-safe identifier from a display name.
// Slugs are assigned once at creation and never recomputed, even when the
// name changes later.
type SlugAllocator interface {
	Allocate(ctx context.Context, name string) (string, error)
}

type slugAllocator struct {
	productRepo repository.ProductRepository
}

func NewSlugAllocator(productRepo repository.ProductRepository) SlugAllocator {
	return &slugAllocator{productRepo: productRepo}
}

// Allocate normalizes name and probes the repository for the first free
// candidate: base, base-1, base-2, ... The probe-then-insert window is not
// atomic; the unique index on the slug column is the second line of
// defense, and the workflow reports its violation as a conflict.
func (a *slugAllocator) Allocate(ctx context.Context, name string) (string, error) {
	base := Slugify(name)

	candidate := base
	for n := 1; ; n++ {
		taken, err := a.productRepo.ExistsBySlug(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("exists by slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}

		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// Slugify lowercases name and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming leading and trailing hyphens.
// A name with no usable characters yields "product".
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := true // suppress a leading hyphen
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "product"
	}

	return slug
}
