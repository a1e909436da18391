package models

// DocsPage is a validated entry of the docs collection. The typed fields are the
// ones the docs theme reads; everything else the theme accepts is kept in Extra.
type DocsPage struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Template    string         `json:"template"`
	Draft       bool           `json:"draft"`
	Pagefind    bool           `json:"pagefind"`
	Sidebar     *DocsSidebar   `json:"sidebar,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// DocsSidebar overrides how a page appears in the docs sidebar
type DocsSidebar struct {
	Label  string `json:"label,omitempty"`
	Order  *int   `json:"order,omitempty"`
	Hidden bool   `json:"hidden"`
}

// Kind implements Record
func (p *DocsPage) Kind() Kind { return KindDocs }

// Frontmatter implements Record
func (p *DocsPage) Frontmatter() map[string]any {
	fm := make(map[string]any, len(p.Extra)+6)
	for k, v := range p.Extra {
		fm[k] = v
	}
	fm["title"] = p.Title
	if p.Description != "" {
		fm["description"] = p.Description
	}
	fm["template"] = p.Template
	fm["draft"] = p.Draft
	fm["pagefind"] = p.Pagefind
	if p.Sidebar != nil {
		sb := map[string]any{"hidden": p.Sidebar.Hidden}
		if p.Sidebar.Label != "" {
			sb["label"] = p.Sidebar.Label
		}
		if p.Sidebar.Order != nil {
			sb["order"] = *p.Sidebar.Order
		}
		fm["sidebar"] = sb
	}
	return fm
}

// GenericPage is an entry of the pages collection; its front-matter is free-form
type GenericPage struct {
	Data map[string]any `json:"data"`
}

// Kind implements Record
func (p *GenericPage) Kind() Kind { return KindPages }

// Frontmatter implements Record
func (p *GenericPage) Frontmatter() map[string]any {
	fm := make(map[string]any, len(p.Data))
	for k, v := range p.Data {
		fm[k] = v
	}
	return fm
}
