package cliemit

import (
	"strconv"
	"strings"

	"github.com/jontk/opnsense-gen/internal/ir"
	"github.com/jontk/opnsense-gen/internal/names"
	"github.com/jontk/opnsense-gen/internal/resolver"
)

// preferredCols is the display priority for table columns; fields not listed
// here fill the remaining slots in declaration order.
var preferredCols = []string{
	"name", "enabled", "description", "type", "address", "port",
	"interface", "proto", "content", "status",
}

const maxColumns = 8

// crudToCLIVerb maps IR CRUD verbs to the leaf command names users type.
var crudToCLIVerb = map[string]string{
	"search": "list",
	"get":    "get",
	"add":    "create",
	"set":    "update",
	"del":    "delete",
	"toggle": "toggle",
}

// VerbView is one leaf command under a resource.
type VerbView struct {
	CLIVerb          string   // "list", "get", "create", ...
	GoMethod         string   // SDK method name, e.g. "AliasSearchItem"
	CRUDVerb         string
	PositionalParams []string // required path params, in order, mapped to args[i]
	HasDataFlag      bool     // typed add/set take a --data JSON flag
	HasBodyArg       bool     // untyped POST endpoint passes an opaque body
	ItemType         string   // Go type name when typed, else ""
	IsTyped          bool
	IsSearch         bool
	SearchNeedsBody  bool // POST search passes the pagination body
	PrimaryMethod    string
	URLPath          string
}

// ColumnView is one table column for a resource's item type.
type ColumnView struct {
	Header    string
	FieldName string
	GoType    string // includes the pointer star for optional non-strings
}

// ResourceView is a named resource grouping one or more verbs.
type ResourceView struct {
	Resource   string // CLI token, e.g. "alias", "tag-list"
	GoIdent    string // identifier fragment, e.g. "Alias", "TagList2"
	ItemType   string
	Columns    []ColumnView
	Verbs      []VerbView
	SuggestFor []string
}

// ModuleView is one module subcommand with its resources.
type ModuleView struct {
	ModuleName  string
	CLIName     string // cobra Use name; differs from ModuleName when disambiguated
	PackageName string
	GoFileIdent string // func and file identifier, e.g. "Firewall"
	SDKPackage  string // full import path of the generated SDK package
	Resources   []ResourceView
}

// reservedTypeNames mirrors the SDK emitter's rename of types that collide
// with the generated client scaffolding.
var reservedTypeNames = map[string]bool{
	"Client":    true,
	"NewClient": true,
}

func safeGoName(name string) string {
	if reservedTypeNames[name] {
		return name + "Config"
	}
	return name
}

// ResourceNameFromEndpoint derives the CLI resource token.
//
// A generic CRUD command (add_item) names the resource after its controller;
// a suffixed CRUD command (search_acl) after the normalized suffix; anything
// else falls back to the controller.
func ResourceNameFromEndpoint(ep *ir.Endpoint) string {
	verb, suffix := resolver.ParseCRUD(ep.Command)
	if verb != "" {
		if suffix == "item" {
			return controllerKebab(ep.Controller)
		}
		return names.NormalizeKebab(suffix)
	}
	return controllerKebab(ep.Controller)
}

func controllerKebab(controller string) string {
	return strings.ReplaceAll(strings.ToLower(controller), "_", "-")
}

// CLIVerbFromEndpoint derives the leaf command name. Resolved CRUD endpoints
// use the fixed verb vocabulary; everything else keeps its kebab-cased
// command token.
func CLIVerbFromEndpoint(ep *ir.Endpoint) string {
	if ep.CRUDVerb != "" {
		if v, ok := crudToCLIVerb[ep.CRUDVerb]; ok {
			return v
		}
		return ep.CRUDVerb
	}
	return names.NormalizeKebab(ep.Command)
}

// ColumnsForItem selects up to maxColumns display columns, preferred fields
// first, then remaining fields in declaration order.
func ColumnsForItem(item *ir.ModelItem) []ColumnView {
	byJSON := map[string]*ir.ModelField{}
	for i := range item.Fields {
		byJSON[item.Fields[i].JSONName] = &item.Fields[i]
	}

	var ordered []*ir.ModelField
	taken := map[string]bool{}
	for _, pref := range preferredCols {
		if f, ok := byJSON[pref]; ok && !taken[f.JSONName] {
			ordered = append(ordered, f)
			taken[f.JSONName] = true
		}
		if len(ordered) == maxColumns {
			break
		}
	}
	for i := range item.Fields {
		if len(ordered) == maxColumns {
			break
		}
		f := &item.Fields[i]
		if !taken[f.JSONName] {
			ordered = append(ordered, f)
			taken[f.JSONName] = true
		}
	}

	cols := make([]ColumnView, 0, len(ordered))
	for _, f := range ordered {
		// Same pointer logic as the SDK struct fields.
		omitempty := !f.Required || f.Volatile
		goType := f.GoType
		if omitempty && goType != "string" {
			goType = "*" + goType
		}
		cols = append(cols, ColumnView{
			Header:    strings.ReplaceAll(strings.ToUpper(f.JSONName), "_", " "),
			FieldName: f.GoName,
			GoType:    goType,
		})
	}
	return cols
}

// NewVerbView projects an endpoint into a leaf command view.
func NewVerbView(ep *ir.Endpoint, cliVerb string) VerbView {
	var positional []string
	for _, p := range ep.Parameters {
		if p.Required {
			positional = append(positional, p.Name)
		}
	}

	primary := ep.PrimaryMethod()
	hasBody := primary == "POST"
	isTyped := ep.ModelItem != nil
	isSearch := ep.CRUDVerb == "search"

	itemType := ""
	if isTyped {
		itemType = safeGoName(ep.ModelItem.GoName)
	}

	return VerbView{
		CLIVerb:          cliVerb,
		GoMethod:         ep.GoMethodName,
		CRUDVerb:         ep.CRUDVerb,
		PositionalParams: positional,
		HasDataFlag:      isTyped && (ep.CRUDVerb == "add" || ep.CRUDVerb == "set"),
		HasBodyArg:       hasBody && !isTyped && !isSearch,
		ItemType:         itemType,
		IsTyped:          isTyped,
		IsSearch:         isSearch,
		SearchNeedsBody:  isSearch && hasBody,
		PrimaryMethod:    primary,
		URLPath:          ep.URLPath,
	}
}

// scoreEndpoint ranks endpoints competing for the same CLI verb: typed CRUD
// beats untyped CRUD beats plain commands.
func scoreEndpoint(ep *ir.Endpoint) int {
	switch {
	case ep.CRUDVerb != "" && ep.ModelItem != nil:
		return 2
	case ep.CRUDVerb != "":
		return 1
	}
	return 0
}

type resourceGroup struct {
	name      string
	endpoints []*ir.Endpoint
	verbs     []string // parallel to endpoints
}

// CollectResources groups a module's endpoints into resources, merges plural
// names into singular siblings, picks one endpoint per verb, and resolves Go
// identifier collisions.
func CollectResources(module *ir.Module) []ResourceView {
	groups := map[string]*resourceGroup{}
	var order []string

	for _, ctrl := range module.Controllers {
		if ctrl.IsAbstract {
			continue
		}
		seen := map[string]bool{}
		for _, ep := range ctrl.Endpoints {
			if seen[ep.GoMethodName] {
				continue
			}
			seen[ep.GoMethodName] = true
			res := ResourceNameFromEndpoint(ep)
			g, ok := groups[res]
			if !ok {
				g = &resourceGroup{name: res}
				groups[res] = g
				order = append(order, res)
			}
			g.endpoints = append(g.endpoints, ep)
			g.verbs = append(g.verbs, CLIVerbFromEndpoint(ep))
		}
	}

	// Merge plural resources into their singular form; searchAcls often sits
	// next to addAcl/delAcl.
	for _, res := range append([]string(nil), order...) {
		if !strings.HasSuffix(res, "s") || len(res) <= 2 {
			continue
		}
		singular := res[:len(res)-1]
		target, ok := groups[singular]
		if !ok {
			continue
		}
		g := groups[res]
		target.endpoints = append(target.endpoints, g.endpoints...)
		target.verbs = append(target.verbs, g.verbs...)
		delete(groups, res)
	}

	identCounts := map[string]int{}
	var resolved []ResourceView

	for _, res := range order {
		g, ok := groups[res]
		if !ok {
			continue // merged away
		}

		// Primary item type comes from the first typed endpoint.
		itemType := ""
		var itemModel *ir.ModelItem
		for _, ep := range g.endpoints {
			if ep.ModelItem != nil {
				itemType = safeGoName(ep.ModelItem.GoName)
				itemModel = ep.ModelItem
				break
			}
		}
		var columns []ColumnView
		if itemModel != nil {
			columns = ColumnsForItem(itemModel)
		}

		// One endpoint per CLI verb, highest score wins, first-seen order.
		type pick struct {
			ep    *ir.Endpoint
			score int
		}
		best := map[string]pick{}
		var verbOrder []string
		for i, ep := range g.endpoints {
			verb := g.verbs[i]
			score := scoreEndpoint(ep)
			prev, ok := best[verb]
			if !ok {
				verbOrder = append(verbOrder, verb)
			}
			if !ok || score > prev.score {
				best[verb] = pick{ep: ep, score: score}
			}
		}
		verbs := make([]VerbView, 0, len(verbOrder))
		for _, verb := range verbOrder {
			verbs = append(verbs, NewVerbView(best[verb].ep, verb))
		}

		base := names.KebabToGoIdent(res)
		goIdent := base
		if n, ok := identCounts[base]; ok {
			identCounts[base] = n + 1
			goIdent = base + strconv.Itoa(n+1)
		} else {
			identCounts[base] = 0
		}

		resolved = append(resolved, ResourceView{
			Resource: res,
			GoIdent:  goIdent,
			ItemType: itemType,
			Columns:  columns,
			Verbs:    verbs,
		})
	}

	// A resource constructor name can collide with a sibling's verb
	// constructor (ResGo+VerbGo == OtherResGo); rename the resource.
	resIdents := map[string]bool{}
	for _, r := range resolved {
		resIdents[r.GoIdent] = true
	}
	for i := range resolved {
		for _, verb := range resolved[i].Verbs {
			combined := resolved[i].GoIdent + names.KebabToGoIdent(verb.CLIVerb)
			if !resIdents[combined] {
				continue
			}
			for j := range resolved {
				if resolved[j].GoIdent == combined {
					delete(resIdents, combined)
					resolved[j].GoIdent = combined + "Resource"
					resIdents[resolved[j].GoIdent] = true
					break
				}
			}
		}
	}

	// Resources sharing a hyphen prefix suggest the bare prefix, unless the
	// prefix is itself a resource.
	resourceNames := map[string]bool{}
	for _, r := range resolved {
		resourceNames[r.Resource] = true
	}
	prefixGroups := map[string][]int{}
	for i, r := range resolved {
		if !strings.Contains(r.Resource, "-") {
			continue
		}
		prefix := strings.SplitN(r.Resource, "-", 2)[0]
		if resourceNames[prefix] {
			continue
		}
		prefixGroups[prefix] = append(prefixGroups[prefix], i)
	}
	for prefix, members := range prefixGroups {
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			resolved[i].SuggestFor = []string{prefix}
		}
	}

	return resolved
}
