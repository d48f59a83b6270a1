package catalog

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/types"
)

// Slugify lowers a title into a URL-safe slug.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "game"
	}
	return slug
}

// UniqueSlug resolves collisions by suffixing -2, -3, ... until free.
func UniqueSlug(db *gorm.DB, title string) (string, error) {
	base := Slugify(title)
	slug := base
	for n := 2; ; n++ {
		var count int64
		if err := db.Model(&types.Game{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
