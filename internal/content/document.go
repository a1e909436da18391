package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/content-collections/internal/models"
)

var (
	ErrMalformedFrontmatter = errors.New("malformed front-matter")
	ErrDocumentTooLarge     = errors.New("document too large")
)

// yamlFormat decodes front-matter with yaml.v3 so nested mappings arrive as
// map[string]interface{} and timestamps stay strings until validation coerces them
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Document is a content file split into front-matter and body
type Document struct {
	Kind        models.Kind            `json:"kind"`
	Path        string                 `json:"path"`
	Slug        string                 `json:"slug"`
	Frontmatter map[string]interface{} `json:"frontmatter"`
	Body        []byte                 `json:"-"`
	Hash        string                 `json:"hash"`
	Stats       Stats                  `json:"stats"`

	// Err is set when the file could not be split or decoded
	Err error `json:"-"`
}

// ParseDocument reads a document. name is the slash-separated path relative to
// the content root; its first segment selects the collection when it names one.
func ParseDocument(name string, r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return parseBytes(name, raw)
}

func parseBytes(name string, raw []byte) (*Document, error) {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	sum := sha256.Sum256(raw)

	doc := &Document{
		Path: name,
		Slug: Slug(name),
		Kind: kindOf(name),
		Hash: hex.EncodeToString(sum[:]),
	}

	var fm map[string]interface{}
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm, yamlFormat)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrMalformedFrontmatter, err)
	}
	if fm == nil {
		fm = make(map[string]interface{})
	}
	doc.Frontmatter = fm
	doc.Body = body
	doc.Stats = ComputeStats(body)

	return doc, nil
}

// ID identifies the document in reports
func (d *Document) ID() string {
	return d.Path
}

// Title is the front-matter title, or one derived from the slug
func (d *Document) Title() string {
	if t, ok := d.Frontmatter["title"].(string); ok && strings.TrimSpace(t) != "" {
		return t
	}
	base := path.Base(d.Slug)
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cases.Title(language.English).String(base)
}

// Slug derives the entry slug from a content path: the collection directory and
// extension are dropped and a trailing index collapses into its directory.
func Slug(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	if i := strings.Index(name, "/"); i >= 0 {
		if _, ok := models.ParseKind(name[:i]); ok {
			name = name[i+1:]
		}
	}
	if strings.HasSuffix(name, "/index") {
		name = strings.TrimSuffix(name, "/index")
	}
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "-")
}

// MarshalDocument writes front-matter and body back into a markdown document
func MarshalDocument(fm map[string]interface{}, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	if len(fm) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(fm); err != nil {
			return nil, fmt.Errorf("failed to encode front-matter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode front-matter: %w", err)
		}
	}
	buf.WriteString("---\n")
	if len(body) > 0 {
		buf.WriteString("\n")
		buf.Write(bytes.TrimLeft(body, "\n"))
		if !bytes.HasSuffix(body, []byte("\n")) {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}
