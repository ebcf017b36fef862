package sdkemit

import (
	"fmt"
	"strings"
)

const generatedHeader = "// Code generated by opnsense-gen. DO NOT EDIT.\n\n"

// renderModuleFile produces <pkg>/<pkg>.go: the per-module client and one
// method per endpoint.
func renderModuleFile(pkg, moduleName, runtimeImport string, eps []EndpointView) []byte {
	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "// Package %s provides typed access to the OPNsense %s API.\npackage %s\n\n", pkg, moduleName, pkg)

	b.WriteString("import (\n")
	b.WriteString("\t\"context\"\n")
	b.WriteString("\t\"fmt\"\n\n")
	fmt.Fprintf(&b, "\t%q\n", runtimeImport)
	b.WriteString(")\n\n")

	fmt.Fprintf(&b, "// Client exposes the %s module endpoints.\n", moduleName)
	b.WriteString("type Client struct {\n\tapi *opnsense.Client\n}\n\n")
	b.WriteString("// NewClient wraps a shared API client.\n")
	b.WriteString("func NewClient(api *opnsense.Client) *Client {\n\treturn &Client{api: api}\n}\n")

	for _, ev := range eps {
		b.WriteString("\n")
		renderMethod(&b, ev)
	}
	return []byte(b.String())
}

// renderMethod writes one endpoint method. The shape depends on the CRUD verb
// and whether the endpoint resolved to a model item.
func renderMethod(b *strings.Builder, ev EndpointView) {
	fmt.Fprintf(b, "// %s calls %s %s.\n", ev.GoMethodName, ev.PrimaryMethod, ev.URLPath)
	if len(ev.OptionalParams) > 0 {
		names := make([]string, 0, len(ev.OptionalParams))
		for _, p := range ev.OptionalParams {
			names = append(names, p.Name)
		}
		fmt.Fprintf(b, "// Optional parameters: %s.\n", strings.Join(names, ", "))
	}

	params := []string{"ctx context.Context"}
	for _, p := range ev.RequiredParams {
		params = append(params, p.Name+" string")
	}

	pathExpr := fmt.Sprintf("%q", ev.URLPath)
	if ev.PathFmt != "" {
		args := make([]string, 0, len(ev.RequiredParams))
		for _, p := range ev.RequiredParams {
			args = append(args, p.Name)
		}
		pathExpr = fmt.Sprintf("fmt.Sprintf(%q, %s)", ev.PathFmt, strings.Join(args, ", "))
	}

	typed := ev.ItemType != ""
	switch {
	case typed && ev.CRUDVerb == "search":
		if ev.HasBody {
			params = append(params, "body any")
		}
		fmt.Fprintf(b, "func (c *Client) %s(%s) (*opnsense.SearchResult[%s], error) {\n",
			ev.GoMethodName, strings.Join(params, ", "), ev.ItemType)
		fmt.Fprintf(b, "\tvar out opnsense.SearchResult[%s]\n", ev.ItemType)
		fmt.Fprintf(b, "\tif err := c.api.Do(ctx, %q, %s, %s, &out); err != nil {\n\t\treturn nil, err\n\t}\n",
			ev.PrimaryMethod, pathExpr, bodyExpr(ev.HasBody))
		b.WriteString("\treturn &out, nil\n}\n")

	case typed && ev.CRUDVerb == "get":
		fmt.Fprintf(b, "func (c *Client) %s(%s) (*%s, error) {\n",
			ev.GoMethodName, strings.Join(params, ", "), ev.ItemType)
		fmt.Fprintf(b, "\tvar out %sGetItemResponse\n", ev.ItemJSONKey)
		fmt.Fprintf(b, "\tif err := c.api.Do(ctx, %q, %s, nil, &out); err != nil {\n\t\treturn nil, err\n\t}\n",
			ev.PrimaryMethod, pathExpr)
		fmt.Fprintf(b, "\treturn &out.%s, nil\n}\n", ev.ItemType)

	case typed && (ev.CRUDVerb == "add" || ev.CRUDVerb == "set"):
		params = append(params, fmt.Sprintf("item *%s", ev.ItemType))
		fmt.Fprintf(b, "func (c *Client) %s(%s) (*opnsense.GenericResponse, error) {\n",
			ev.GoMethodName, strings.Join(params, ", "))
		fmt.Fprintf(b, "\tbody := map[string]any{%q: item}\n", ev.ItemJSONKey)
		b.WriteString("\tvar out opnsense.GenericResponse\n")
		fmt.Fprintf(b, "\tif err := c.api.Do(ctx, %q, %s, body, &out); err != nil {\n\t\treturn nil, err\n\t}\n",
			ev.PrimaryMethod, pathExpr)
		b.WriteString("\treturn &out, nil\n}\n")

	case typed: // del, toggle
		fmt.Fprintf(b, "func (c *Client) %s(%s) (*opnsense.GenericResponse, error) {\n",
			ev.GoMethodName, strings.Join(params, ", "))
		b.WriteString("\tvar out opnsense.GenericResponse\n")
		fmt.Fprintf(b, "\tif err := c.api.Do(ctx, %q, %s, nil, &out); err != nil {\n\t\treturn nil, err\n\t}\n",
			ev.PrimaryMethod, pathExpr)
		b.WriteString("\treturn &out, nil\n}\n")

	default:
		if ev.HasBody {
			params = append(params, "body any")
		}
		fmt.Fprintf(b, "func (c *Client) %s(%s) (any, error) {\n",
			ev.GoMethodName, strings.Join(params, ", "))
		b.WriteString("\tvar out any\n")
		fmt.Fprintf(b, "\tif err := c.api.Do(ctx, %q, %s, %s, &out); err != nil {\n\t\treturn nil, err\n\t}\n",
			ev.PrimaryMethod, pathExpr, bodyExpr(ev.HasBody))
		b.WriteString("\treturn out, nil\n}\n")
	}
}

func bodyExpr(hasBody bool) string {
	if hasBody {
		return "body"
	}
	return "nil"
}

// renderTypesFile produces <pkg>/types.go: the item structs and the response
// wrappers used by typed get endpoints.
func renderTypesFile(pkg, runtimeImport string, items []TypeItemView, wrappers []WrapperView) []byte {
	var b strings.Builder
	b.WriteString(generatedHeader)
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	fmt.Fprintf(&b, "import %q\n", runtimeImport)

	for _, item := range items {
		b.WriteString("\n")
		fmt.Fprintf(&b, "// %s is the %q model item.\n", item.GoName, item.Name)
		fmt.Fprintf(&b, "type %s struct {\n", item.GoName)
		for _, f := range item.Fields {
			if len(f.Options) > 0 {
				fmt.Fprintf(&b, "\t// Options: %s\n", strings.Join(f.Options, ", "))
			}
			tag := f.JSONName
			if f.Omitempty {
				tag += ",omitempty"
			}
			fmt.Fprintf(&b, "\t%s %s `json:%q`\n", f.GoName, f.GoType, tag)
		}
		b.WriteString("}\n")
	}

	for _, w := range wrappers {
		b.WriteString("\n")
		fmt.Fprintf(&b, "type %s struct {\n", w.WrapperName)
		fmt.Fprintf(&b, "\t%s %s `json:%q`\n", w.FieldName, w.FieldName, w.JSONKey)
		b.WriteString("}\n")
	}
	return []byte(b.String())
}

// renderAPIFile produces api/api.go, the aggregate that hands out one client
// per generated module.
func renderAPIFile(runtimeImport, pkgImportBase string, modules []ModuleView) []byte {
	var b strings.Builder
	b.WriteString(generatedHeader)
	b.WriteString("// Package api bundles every generated module client behind one entry point.\npackage api\n\n")

	b.WriteString("import (\n")
	fmt.Fprintf(&b, "\t%q\n\n", runtimeImport)
	for _, m := range modules {
		fmt.Fprintf(&b, "\t%q\n", pkgImportBase+"/"+m.PackageName)
	}
	b.WriteString(")\n\n")

	b.WriteString("// API exposes one typed client per OPNsense module.\ntype API struct {\n")
	for _, m := range modules {
		fmt.Fprintf(&b, "\t%s *%s.Client\n", m.FieldName, m.PackageName)
	}
	b.WriteString("}\n\n")

	b.WriteString("// New builds the full API surface over a shared client.\n")
	b.WriteString("func New(c *opnsense.Client) *API {\n\treturn &API{\n")
	for _, m := range modules {
		fmt.Fprintf(&b, "\t\t%s: %s.NewClient(c),\n", m.FieldName, m.PackageName)
	}
	b.WriteString("\t}\n}\n")
	return []byte(b.String())
}
