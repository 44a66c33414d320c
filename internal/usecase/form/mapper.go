package form

import (
	"fmt"
	"strings"

	"removal-agent/internal/domain/entity"
)

// MapFields binds named inputs and textareas to canonical profile fields.
// The first canonical key contained in the lowercased name wins; unnamed
// controls are skipped because they cannot be addressed by name.
func MapFields(form *entity.DiscoveredForm) []entity.FieldMapping {
	if form == nil {
		return nil
	}

	var mappings []entity.FieldMapping
	for _, f := range form.Fields {
		if f.Name == "" || (f.Tag != "input" && f.Tag != "textarea") {
			continue
		}
		lower := strings.ToLower(f.Name)
		for _, key := range entity.CanonicalFields {
			if strings.Contains(lower, string(key)) {
				mappings = append(mappings, entity.FieldMapping{
					Field:    key,
					Name:     f.Name,
					Selector: NameSelector(f.Name),
				})
				break
			}
		}
	}
	return mappings
}

func NameSelector(name string) string {
	return fmt.Sprintf("[name=%q]", name)
}

// captchaInputSelector finds the control that receives an image or text
// answer.
func captchaInputSelector(form *entity.DiscoveredForm) string {
	for _, f := range form.Fields {
		if f.Tag != "input" {
			continue
		}
		if !strings.Contains(strings.ToLower(f.Name+f.ID), "captcha") {
			continue
		}
		if f.Name != "" {
			return NameSelector(f.Name)
		}
		return "#" + f.ID
	}
	return ""
}
