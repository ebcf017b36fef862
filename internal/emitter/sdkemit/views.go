package sdkemit

import (
	"github.com/jontk/opnsense-gen/internal/ir"
	"github.com/jontk/opnsense-gen/internal/names"
)

// goReserved are Go keywords; package and parameter names must avoid them.
var goReserved = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true,
	"for": true, "func": true, "go": true, "goto": true, "if": true,
	"import": true, "interface": true, "map": true, "package": true,
	"range": true, "return": true, "select": true, "struct": true,
	"switch": true, "type": true, "var": true,
}

// reservedTypeNames collide with the generated client scaffolding in the same
// package and get a Config suffix.
var reservedTypeNames = map[string]bool{
	"Client":    true,
	"NewClient": true,
}

// ParamView is one endpoint parameter in template-friendly form.
type ParamView struct {
	Name    string
	Default string
}

// EndpointView is the template-friendly projection of an Endpoint.
type EndpointView struct {
	GoMethodName   string
	Methods        []string
	URLPath        string
	PrimaryMethod  string
	HasBody        bool
	RequiredParams []ParamView
	OptionalParams []ParamView
	PathFmt        string // fmt.Sprintf pattern; empty when no path params
	ItemType       string // Go type name, empty for untyped endpoints
	ItemJSONKey    string
	CRUDVerb       string
}

// TypeFieldView is one struct field of an emitted item type.
type TypeFieldView struct {
	GoName    string
	JSONName  string
	GoType    string // includes the pointer star for optional non-strings
	Omitempty bool
	Options   []string
}

// TypeItemView is one emitted item type.
type TypeItemView struct {
	Name   string
	GoName string
	Fields []TypeFieldView
}

// WrapperView is one response-wrapper type for a typed get endpoint.
type WrapperView struct {
	WrapperName string // e.g. "aliasGetItemResponse"
	FieldName   string // item type, e.g. "Alias"
	JSONKey     string
}

// ModuleView feeds the shared api.go aggregator.
type ModuleView struct {
	PackageName string
	FieldName   string
}

// SafeTypeName renames reserved type names (Client → ClientConfig).
func SafeTypeName(name string) string {
	if reservedTypeNames[name] {
		return name + "Config"
	}
	return name
}

func safeParamName(name string) string {
	if goReserved[name] {
		return name + "Val"
	}
	return name
}

// CollectEndpoints gathers every non-abstract endpoint of a module, deduped
// by derived method name; the first occurrence wins.
func CollectEndpoints(module *ir.Module) []*ir.Endpoint {
	var endpoints []*ir.Endpoint
	seen := map[string]bool{}
	for _, ctrl := range module.Controllers {
		if ctrl.IsAbstract {
			continue
		}
		for _, ep := range ctrl.Endpoints {
			if seen[ep.GoMethodName] {
				continue
			}
			seen[ep.GoMethodName] = true
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints
}

// CollectModelItems gathers a module's items, deduped by Go type name.
func CollectModelItems(module *ir.Module) []*ir.ModelItem {
	var items []*ir.ModelItem
	seen := map[string]bool{}
	for _, ctrl := range module.Controllers {
		if ctrl.Model == nil {
			continue
		}
		for _, item := range ctrl.Model.Items {
			if seen[item.GoName] {
				continue
			}
			seen[item.GoName] = true
			items = append(items, item)
		}
	}
	return items
}

// NewEndpointView projects an Endpoint for rendering.
func NewEndpointView(ep *ir.Endpoint) EndpointView {
	var required, optional []ParamView
	for _, p := range ep.Parameters {
		if p.Required {
			required = append(required, ParamView{Name: safeParamName(p.Name)})
		} else {
			optional = append(optional, ParamView{Name: p.Name, Default: p.Default})
		}
	}

	pathFmt := ""
	if len(required) > 0 {
		pathFmt = ep.URLPath
		for range required {
			pathFmt += "/%s"
		}
	}

	primary := ep.PrimaryMethod()

	itemType, itemKey := "", ""
	if ep.ModelItem != nil {
		itemType = SafeTypeName(ep.ModelItem.GoName)
		itemKey = ep.ItemJSONKey
	}

	return EndpointView{
		GoMethodName:   ep.GoMethodName,
		Methods:        ep.Methods,
		URLPath:        ep.URLPath,
		PrimaryMethod:  primary,
		HasBody:        primary == "POST",
		RequiredParams: required,
		OptionalParams: optional,
		PathFmt:        pathFmt,
		ItemType:       itemType,
		ItemJSONKey:    itemKey,
		CRUDVerb:       ep.CRUDVerb,
	}
}

// NewTypeItemView projects a ModelItem, deduplicating field names inside the
// struct (first occurrence wins).
func NewTypeItemView(item *ir.ModelItem) TypeItemView {
	seen := map[string]bool{}
	var fields []TypeFieldView
	for _, f := range item.Fields {
		if seen[f.GoName] {
			continue
		}
		seen[f.GoName] = true

		omitempty := !f.Required || f.Volatile
		goType := f.GoType
		if omitempty && goType != "string" {
			goType = "*" + goType
		}
		fields = append(fields, TypeFieldView{
			GoName:    f.GoName,
			JSONName:  f.JSONName,
			GoType:    goType,
			Omitempty: omitempty,
			Options:   f.Options,
		})
	}
	return TypeItemView{
		Name:   item.Name,
		GoName: SafeTypeName(item.GoName),
		Fields: fields,
	}
}

// CollectResponseWrappers returns one wrapper per distinct JSON key used by a
// typed get endpoint.
func CollectResponseWrappers(eps []EndpointView) []WrapperView {
	seen := map[string]bool{}
	var wrappers []WrapperView
	for _, ev := range eps {
		if ev.CRUDVerb != "get" || ev.ItemType == "" || ev.ItemJSONKey == "" {
			continue
		}
		if seen[ev.ItemJSONKey] {
			continue
		}
		seen[ev.ItemJSONKey] = true
		wrappers = append(wrappers, WrapperView{
			WrapperName: ev.ItemJSONKey + "GetItemResponse",
			FieldName:   ev.ItemType,
			JSONKey:     ev.ItemJSONKey,
		})
	}
	return wrappers
}

// ModuleFieldName derives the api.go struct field for a module.
func ModuleFieldName(moduleName string) string {
	return names.KebabToGoIdent(moduleName)
}

// PackageFor derives the Go package name for a module, avoiding reserved
// words and package names already taken by an earlier module.
func PackageFor(module *ir.Module, seen map[string]bool) string {
	pkg := names.ModuleToPackage(module.Name)
	if goReserved[pkg] {
		pkg += "api"
	}
	if seen[pkg] {
		pkg = module.Category + pkg
	}
	seen[pkg] = true
	return pkg
}
