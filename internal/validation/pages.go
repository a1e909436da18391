package validation

import (
	"github.com/content-collections/internal/models"
)

// validatePage accepts any front-matter
func validatePage(raw map[string]interface{}) *models.GenericPage {
	data := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		data[k] = normalize(v)
	}
	return &models.GenericPage{Data: data}
}

func describePages() models.CollectionSpec {
	return models.CollectionSpec{
		Kind:        models.KindPages,
		Description: "Free-form pages; front-matter is not validated",
		Fields:      []models.FieldSpec{},
	}
}
