package venues

import "github.com/gosimple/slug"

const maxSlugLen = 250

func init() {
	slug.MaxLength = maxSlugLen
}

// Slugify transliterates name and joins its words with single hyphens.
func Slugify(name string) string {
	return slug.MakeLang(name, "ru")
}
