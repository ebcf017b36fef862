// Package oasemit exports the parsed API spec as an OpenAPI 3 document. The
// docs tables carry no response schemas, so operations get the documented
// path and method, path parameters, and item schemas where the resolver
// linked one.
package oasemit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/jontk/opnsense-gen/internal/ir"
	"github.com/jontk/opnsense-gen/internal/names"
)

// Options controls the OpenAPI export.
type Options struct {
	Out     string // required; target YAML file
	Title   string
	Version string
	DryRun  bool
}

// Result reports what the export produced.
type Result struct {
	OutPath     string
	PathCount   int
	SchemaCount int
}

// Emit builds the document and writes it as YAML.
func Emit(ctx context.Context, spec *ir.APISpec, opts Options) (*Result, error) {
	_ = ctx
	if spec == nil {
		return nil, errors.New("oasemit: nil spec")
	}
	if strings.TrimSpace(opts.Out) == "" {
		return nil, errors.New("oasemit: Out is required")
	}

	doc := Build(spec, opts)
	result := &Result{
		OutPath:     opts.Out,
		PathCount:   len(doc.Paths),
		SchemaCount: len(doc.Components.Schemas),
	}
	if opts.DryRun {
		return result, nil
	}

	// kin-openapi serializes via JSON tags; round-trip through JSON to get
	// clean YAML.
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal openapi document")
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, errors.Wrap(err, "round-trip openapi document")
	}
	out, err := yaml.Marshal(tree)
	if err != nil {
		return nil, errors.Wrap(err, "render openapi yaml")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Out), 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir")
	}
	tmp := opts.Out + ".tmp-" + time.Now().Format("20060102150405")
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return nil, errors.Wrap(err, "write openapi yaml")
	}
	if err := os.Rename(tmp, opts.Out); err != nil {
		_ = os.Remove(tmp)
		return nil, errors.Wrap(err, "rename openapi yaml")
	}
	return result, nil
}

// Build assembles the in-memory OpenAPI document.
func Build(spec *ir.APISpec, opts Options) *openapi3.T {
	title := opts.Title
	if title == "" {
		title = "OPNsense API"
	}
	version := opts.Version
	if version == "" {
		version = "0.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"GenericResponse": genericResponseSchema(),
			},
		},
	}

	seenSchemas := map[string]bool{"GenericResponse": true}
	itemSchemaNames := map[*ir.ModelItem]string{}

	for _, module := range spec.Modules {
		modIdent := names.KebabToGoIdent(module.Name)
		for _, ctrl := range module.Controllers {
			if ctrl.IsAbstract {
				continue
			}
			if ctrl.Model != nil {
				for _, item := range ctrl.Model.Items {
					if _, ok := itemSchemaNames[item]; ok {
						continue
					}
					name := modIdent + item.GoName
					if seenSchemas[name] {
						name = names.KebabToGoIdent(module.Category) + name
					}
					seenSchemas[name] = true
					itemSchemaNames[item] = name
					doc.Components.Schemas[name] = itemSchema(item)
				}
			}
			for _, ep := range ctrl.Endpoints {
				addOperation(doc, module, ep, itemSchemaNames)
			}
		}
	}
	return doc
}

func addOperation(doc *openapi3.T, module *ir.Module, ep *ir.Endpoint, itemSchemaNames map[*ir.ModelItem]string) {
	path := ep.URLPath
	var params openapi3.Parameters
	for _, p := range ep.Parameters {
		if !p.Required {
			continue
		}
		path += "/{" + p.Name + "}"
		params = append(params, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:     p.Name,
			In:       "path",
			Required: true,
			Schema:   openapi3.NewStringSchema().NewRef(),
		}})
	}
	for _, p := range ep.Parameters {
		if p.Required {
			continue
		}
		param := &openapi3.Parameter{
			Name:   p.Name,
			In:     "query",
			Schema: openapi3.NewStringSchema().NewRef(),
		}
		if p.Default != "" {
			param.Description = "Defaults to " + p.Default + "."
		}
		params = append(params, &openapi3.ParameterRef{Value: param})
	}

	op := &openapi3.Operation{
		OperationID: ep.GoMethodName,
		Tags:        []string{module.Name},
		Parameters:  params,
		Responses:   openapi3.Responses{"200": successResponse(ep, itemSchemaNames)},
	}

	if ep.PrimaryMethod() == "POST" {
		op.RequestBody = requestBody(ep, itemSchemaNames)
	}

	item := doc.Paths[path]
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths[path] = item
	}
	item.SetOperation(ep.PrimaryMethod(), op)
}

func schemaRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

// requestBody describes the POST payload. Typed add/set operations wrap the
// item under its JSON key; anything else accepts a free-form object.
func requestBody(ep *ir.Endpoint, itemSchemaNames map[*ir.ModelItem]string) *openapi3.RequestBodyRef {
	var schema *openapi3.SchemaRef
	if ep.ModelItem != nil && (ep.CRUDVerb == "add" || ep.CRUDVerb == "set") {
		wrapper := openapi3.NewObjectSchema()
		wrapper.Properties = openapi3.Schemas{ep.ItemJSONKey: schemaRef(itemSchemaNames[ep.ModelItem])}
		schema = openapi3.NewSchemaRef("", wrapper)
	} else {
		schema = openapi3.NewSchemaRef("", openapi3.NewObjectSchema())
	}
	return &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
		Content: openapi3.NewContentWithJSONSchemaRef(schema),
	}}
}

func successResponse(ep *ir.Endpoint, itemSchemaNames map[*ir.ModelItem]string) *openapi3.ResponseRef {
	desc := "OK"
	var schema *openapi3.SchemaRef

	switch {
	case ep.ModelItem != nil && ep.CRUDVerb == "search":
		rows := openapi3.NewArraySchema()
		rows.Items = schemaRef(itemSchemaNames[ep.ModelItem])
		result := openapi3.NewObjectSchema()
		result.Properties = openapi3.Schemas{
			"rows":     openapi3.NewSchemaRef("", rows),
			"rowCount": openapi3.NewIntegerSchema().NewRef(),
			"total":    openapi3.NewIntegerSchema().NewRef(),
			"current":  openapi3.NewIntegerSchema().NewRef(),
		}
		schema = openapi3.NewSchemaRef("", result)
	case ep.ModelItem != nil && ep.CRUDVerb == "get":
		wrapper := openapi3.NewObjectSchema()
		wrapper.Properties = openapi3.Schemas{ep.ItemJSONKey: schemaRef(itemSchemaNames[ep.ModelItem])}
		schema = openapi3.NewSchemaRef("", wrapper)
	case ep.CRUDVerb != "":
		schema = schemaRef("GenericResponse")
	default:
		schema = openapi3.NewSchemaRef("", openapi3.NewObjectSchema())
	}

	return &openapi3.ResponseRef{Value: &openapi3.Response{
		Description: &desc,
		Content:     openapi3.NewContentWithJSONSchemaRef(schema),
	}}
}

// itemSchema renders a model item. OPNsense serializes every field as a
// string on the wire, booleans included, so properties stay strings with
// enums where the model declares option values.
func itemSchema(item *ir.ModelItem) *openapi3.SchemaRef {
	obj := openapi3.NewObjectSchema()
	obj.Properties = openapi3.Schemas{}
	for _, f := range item.Fields {
		prop := openapi3.NewStringSchema()
		switch f.FieldType {
		case "BooleanField":
			prop.Enum = []any{"0", "1"}
		case "IntegerField", "NumericField":
			prop.Description = "Numeric value serialized as a string."
		}
		for _, opt := range f.Options {
			prop.Enum = append(prop.Enum, opt)
		}
		if f.Default != "" {
			prop.Default = f.Default
		}
		obj.Properties[f.JSONName] = openapi3.NewSchemaRef("", prop)
		if f.Required && !f.Volatile {
			obj.Required = append(obj.Required, f.JSONName)
		}
	}
	return openapi3.NewSchemaRef("", obj)
}

func genericResponseSchema() *openapi3.SchemaRef {
	obj := openapi3.NewObjectSchema()
	obj.Properties = openapi3.Schemas{
		"result": openapi3.NewStringSchema().NewRef(),
		"uuid":   openapi3.NewStringSchema().NewRef(),
		"validations": openapi3.NewSchemaRef("", &openapi3.Schema{
			Type:                 "object",
			AdditionalProperties: openapi3.AdditionalProperties{Schema: openapi3.NewStringSchema().NewRef()},
		}),
	}
	return openapi3.NewSchemaRef("", obj)
}
