package validation

import (
	"github.com/content-collections/internal/models"
)

// DocsSchema is the contract a docs theme exposes for its pages. The docs
// collection is validated entirely by it.
type DocsSchema interface {
	Validate(raw map[string]interface{}) (*models.DocsPage, []FieldError)
	Describe() models.CollectionSpec
}

var docsTemplates = map[string]bool{
	"doc":    true,
	"splash": true,
}

// docsFields are the keys the theme schema reads itself; everything else is an extra
var docsFields = map[string]bool{
	"title":       true,
	"description": true,
	"template":    true,
	"draft":       true,
	"pagefind":    true,
	"sidebar":     true,
	"lastUpdated": true,
	"editUrl":     true,
}

// ThemeSchema is the default docs theme schema
type ThemeSchema struct{}

// Validate implements DocsSchema
func (ThemeSchema) Validate(raw map[string]interface{}) (*models.DocsPage, []FieldError) {
	var errs fieldErrors
	page := &models.DocsPage{
		Template: "doc",
		Pagefind: true,
	}

	page.Title = requiredString(raw, "title", "title", &errs)
	if v, ok := raw["title"].(string); ok && isBlank(v) {
		errs.missing("title")
	}
	page.Description = optionalString(raw, "description", "description", &errs)

	if v, ok := lookup(raw, "template"); ok && v != nil {
		tmpl, isString := v.(string)
		switch {
		case !isString:
			errs.mismatch("template", "string", v)
		case !docsTemplates[tmpl]:
			errs = append(errs, FieldError{
				Field:   "template",
				Code:    CodeTypeMismatch,
				Message: "expected one of doc, splash",
				Value:   v,
			})
		default:
			page.Template = tmpl
		}
	}

	page.Draft = optionalBool(raw, "draft", "draft", false, &errs)
	page.Pagefind = optionalBool(raw, "pagefind", "pagefind", true, &errs)

	if v, ok := lookup(raw, "sidebar"); ok && v != nil {
		sb, isMap := asMap(v)
		if !isMap {
			errs.malformed("sidebar", v)
		} else {
			page.Sidebar = &models.DocsSidebar{
				Label:  optionalString(sb, "label", "sidebar.label", &errs),
				Hidden: optionalBool(sb, "hidden", "sidebar.hidden", false, &errs),
			}
			if o, ok := lookup(sb, "order"); ok && o != nil {
				if n, isInt := asInt(o); isInt {
					page.Sidebar.Order = &n
				} else {
					errs.mismatch("sidebar.order", "integer", o)
				}
			}
		}
	}

	for k, v := range raw {
		if !docsFields[k] {
			setExtra(page, k, normalize(v))
		}
	}

	// lastUpdated is a date or a switch; editUrl is a URL or a switch
	if v, ok := lookup(raw, "lastUpdated"); ok && v != nil {
		if b, isBool := v.(bool); isBool {
			setExtra(page, "lastUpdated", b)
		} else if t, code := coerceDate(v); code != "" {
			dateError(&errs, "lastUpdated", code, v)
		} else {
			setExtra(page, "lastUpdated", t.Format(models.DateLayout))
		}
	}
	if v, ok := lookup(raw, "editUrl"); ok && v != nil {
		switch v.(type) {
		case string, bool:
			setExtra(page, "editUrl", v)
		default:
			errs.mismatch("editUrl", "string or boolean", v)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return page, nil
}

func setExtra(page *models.DocsPage, key string, v interface{}) {
	if page.Extra == nil {
		page.Extra = make(map[string]interface{})
	}
	page.Extra[key] = v
}

// Describe implements DocsSchema
func (ThemeSchema) Describe() models.CollectionSpec {
	return models.CollectionSpec{
		Kind:        models.KindDocs,
		Description: "Documentation pages; unknown keys are passed through to the docs theme",
		Fields: []models.FieldSpec{
			{Name: "title", Type: "string", Required: true},
			{Name: "description", Type: "string"},
			{Name: "template", Type: "doc|splash", Default: "doc"},
			{Name: "draft", Type: "boolean", Default: false},
			{Name: "pagefind", Type: "boolean", Default: true},
			{Name: "sidebar", Type: "object", Fields: []models.FieldSpec{
				{Name: "label", Type: "string"},
				{Name: "order", Type: "integer"},
				{Name: "hidden", Type: "boolean", Default: false},
			}},
			{Name: "lastUpdated", Type: "date|boolean"},
			{Name: "editUrl", Type: "string|boolean"},
		},
	}
}
