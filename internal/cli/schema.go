package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/validation"
)

func newSchemaCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schema [collection]",
		Short: "Print the schema of every collection, or of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := validation.NewValidator()
			specs := v.Schemas()

			if len(args) == 1 {
				kind, ok := models.ParseKind(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", validation.ErrUnknownCollection, args[0])
				}
				spec, _ := v.Schema(kind)
				specs = []models.CollectionSpec{spec}
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(specs)
			}

			doc, err := schemaDocument(specs)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print schemas as JSON")
	return cmd
}

type fieldDoc struct {
	Name     string      `yaml:"name"`
	Type     string      `yaml:"type"`
	Required bool        `yaml:"required"`
	Default  interface{} `yaml:"default,omitempty"`
	Fields   []fieldDoc  `yaml:"fields,omitempty"`
}

type collectionDoc struct {
	Description string     `yaml:"description"`
	Fields      []fieldDoc `yaml:"fields"`
}

// schemaDocument shapes specs for YAML output keyed by collection name, in declaration order
func schemaDocument(specs []models.CollectionSpec) (*yaml.Node, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, spec := range specs {
		var body yaml.Node
		if err := body.Encode(collectionDoc{Description: spec.Description, Fields: fieldDocs(spec.Fields)}); err != nil {
			return nil, err
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(spec.Kind)},
			&body,
		)
	}
	return doc, nil
}

func fieldDocs(fields []models.FieldSpec) []fieldDoc {
	out := make([]fieldDoc, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldDoc{
			Name:     f.Name,
			Type:     f.Type,
			Required: f.Required,
			Default:  f.Default,
			Fields:   fieldDocs(f.Fields),
		})
	}
	return out
}
