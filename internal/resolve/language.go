package resolve

import (
	"strings"

	"github.com/google/uuid"

	"signage-backend/internal/model"
)

// LanguageVariants is a read-only view of one scene language group.
type LanguageVariants struct {
	DefaultLanguage string
	// Variants maps a lower-cased language code to the scene carrying it.
	Variants map[string]uuid.UUID
}

// NewLanguageVariants builds the view from a group and its active scenes.
func NewLanguageVariants(group *model.LanguageGroup, scenes []model.Scene) *LanguageVariants {
	v := &LanguageVariants{
		DefaultLanguage: group.DefaultLanguage,
		Variants:        make(map[string]uuid.UUID, len(scenes)),
	}
	for _, s := range scenes {
		if !s.IsActive || s.LanguageCode == nil || *s.LanguageCode == "" {
			continue
		}
		v.Variants[strings.ToLower(*s.LanguageCode)] = s.ID
	}
	return v
}

func (v *LanguageVariants) lookup(lang string) (uuid.UUID, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return uuid.Nil, false
	}
	if id, ok := v.Variants[lang]; ok {
		return id, true
	}
	// "es-MX" falls back to "es".
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		if id, ok := v.Variants[lang[:i]]; ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// SelectVariant picks the scene to render for a device language: the matching
// variant, else the group's default-language variant, else the requested scene.
// It never fails.
func SelectVariant(requested uuid.UUID, deviceLanguage string, group *LanguageVariants) uuid.UUID {
	if group == nil {
		return requested
	}
	if id, ok := group.lookup(deviceLanguage); ok {
		return id
	}
	if id, ok := group.lookup(group.DefaultLanguage); ok {
		return id
	}
	return requested
}
