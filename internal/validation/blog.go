package validation

import (
	"github.com/content-collections/internal/models"
)

// validateBlog enforces the blog post shape. Unknown keys are dropped.
func validateBlog(raw map[string]interface{}) (*models.BlogPost, fieldErrors) {
	var errs fieldErrors
	post := &models.BlogPost{
		Tags:  []string{},
		Links: []models.BlogLink{},
	}

	// Validate title
	post.Title = requiredString(raw, "title", "title", &errs)
	if v, ok := raw["title"].(string); ok && isBlank(v) {
		errs.missing("title")
	}

	post.Description = requiredString(raw, "description", "description", &errs)

	// Validate dates
	if v, ok := lookup(raw, "created_at"); !ok || v == nil {
		errs.missing("created_at")
	} else if t, code := coerceDate(v); code != "" {
		dateError(&errs, "created_at", code, v)
	} else {
		post.CreatedAt = t
	}

	if v, ok := lookup(raw, "updated_at"); ok && v != nil {
		if t, code := coerceDate(v); code != "" {
			dateError(&errs, "updated_at", code, v)
		} else {
			post.UpdatedAt = &t
		}
	}

	// Validate tags; the default applies only when the key is absent
	if v, ok := lookup(raw, "tags"); ok {
		items, isList := asSlice(v)
		if !isList {
			errs.mismatch("tags", "array", v)
		} else {
			for i, item := range items {
				tag, isString := item.(string)
				if !isString {
					errs.mismatch(index("tags", i), "string", item)
					continue
				}
				post.Tags = append(post.Tags, tag)
			}
		}
	}

	// Validate image: src and alt are required together
	if v, ok := lookup(raw, "image"); !ok || v == nil {
		errs.missing("image")
	} else if img, isMap := asMap(v); !isMap {
		errs.malformed("image", v)
	} else {
		post.Image.Src = requiredString(img, "src", "image.src", &errs)
		post.Image.Alt = requiredString(img, "alt", "image.alt", &errs)
	}

	// Validate links
	if v, ok := lookup(raw, "links"); ok {
		items, isList := asSlice(v)
		if !isList {
			errs.mismatch("links", "array", v)
		} else {
			for i, item := range items {
				path := index("links", i)
				link, isMap := asMap(item)
				if !isMap {
					errs.malformed(path, item)
					continue
				}
				post.Links = append(post.Links, models.BlogLink{
					Name: requiredString(link, "name", path+".name", &errs),
					Link: requiredString(link, "link", path+".link", &errs),
				})
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return post, nil
}

func dateError(errs *fieldErrors, field string, code Code, v interface{}) {
	if code == CodeTypeMismatch {
		errs.mismatch(field, "date", v)
		return
	}
	errs.badDate(field, v)
}

func describeBlog() models.CollectionSpec {
	return models.CollectionSpec{
		Kind:        models.KindBlog,
		Description: "Blog posts with a cover image and optional tags and links",
		Fields: []models.FieldSpec{
			{Name: "title", Type: "string", Required: true},
			{Name: "description", Type: "string", Required: true},
			{Name: "created_at", Type: "date", Required: true},
			{Name: "updated_at", Type: "date"},
			{Name: "tags", Type: "string[]", Default: []string{}},
			{Name: "image", Type: "object", Required: true, Fields: []models.FieldSpec{
				{Name: "src", Type: "string", Required: true},
				{Name: "alt", Type: "string", Required: true},
			}},
			{Name: "links", Type: "object[]", Default: []interface{}{}, Fields: []models.FieldSpec{
				{Name: "name", Type: "string", Required: true},
				{Name: "link", Type: "string", Required: true},
			}},
		},
	}
}

