package models

import (
	"time"
)

// DateLayout is the canonical serialization of coerced dates
const DateLayout = time.RFC3339Nano

// BlogPost is a validated entry of the blog collection
type BlogPost struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Tags        []string   `json:"tags"`
	Image       BlogImage  `json:"image"`
	Links       []BlogLink `json:"links"`
}

// BlogImage is the cover image of a blog post. Both fields are always present.
type BlogImage struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// BlogLink is a named external reference attached to a blog post
type BlogLink struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// Kind implements Record
func (p *BlogPost) Kind() Kind { return KindBlog }

// Frontmatter implements Record
func (p *BlogPost) Frontmatter() map[string]any {
	tags := make([]any, len(p.Tags))
	for i, t := range p.Tags {
		tags[i] = t
	}
	links := make([]any, len(p.Links))
	for i, l := range p.Links {
		links[i] = map[string]any{"name": l.Name, "link": l.Link}
	}

	fm := map[string]any{
		"title":       p.Title,
		"description": p.Description,
		"created_at":  p.CreatedAt.UTC().Format(DateLayout),
		"tags":        tags,
		"image": map[string]any{
			"src": p.Image.Src,
			"alt": p.Image.Alt,
		},
		"links": links,
	}
	if p.UpdatedAt != nil {
		fm["updated_at"] = p.UpdatedAt.UTC().Format(DateLayout)
	}
	return fm
}
