package oasemit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/opnsense-gen/internal/ir"
)

func testSpec() *ir.APISpec {
	alias := &ir.ModelItem{
		Name:   "alias",
		GoName: "Alias",
		Fields: []ir.ModelField{
			{Name: "name", GoName: "Name", JSONName: "name", GoType: "string", FieldType: "TextField", Required: true},
			{Name: "enabled", GoName: "Enabled", JSONName: "enabled", GoType: "opnsense.OPNBool", FieldType: "BooleanField", Default: "1"},
			{Name: "type", GoName: "Type", JSONName: "type", GoType: "string", FieldType: "OptionField", Options: []string{"host", "network"}},
			{Name: "status", GoName: "Status", JSONName: "status", GoType: "string", FieldType: "TextField", Required: true, Volatile: true},
		},
	}
	search := &ir.Endpoint{
		Methods:      []string{"POST"},
		Module:       "firewall",
		Controller:   "alias",
		Command:      "search_item",
		URLPath:      "/api/firewall/alias/searchItem",
		GoMethodName: "AliasSearchItem",
		CRUDVerb:     "search",
		ModelItem:    alias,
		ItemJSONKey:  "alias",
	}
	get := &ir.Endpoint{
		Methods:      []string{"GET"},
		Module:       "firewall",
		Controller:   "alias",
		Command:      "get_item",
		URLPath:      "/api/firewall/alias/getItem",
		GoMethodName: "AliasGetItem",
		Parameters:   []ir.Parameter{{Name: "uuid", Required: true}},
		CRUDVerb:     "get",
		ModelItem:    alias,
		ItemJSONKey:  "alias",
	}
	add := &ir.Endpoint{
		Methods:      []string{"POST"},
		Module:       "firewall",
		Controller:   "alias",
		Command:      "add_item",
		URLPath:      "/api/firewall/alias/addItem",
		GoMethodName: "AliasAddItem",
		CRUDVerb:     "add",
		ModelItem:    alias,
		ItemJSONKey:  "alias",
	}
	toggle := &ir.Endpoint{
		Methods:      []string{"POST"},
		Module:       "firewall",
		Controller:   "alias",
		Command:      "toggle_item",
		URLPath:      "/api/firewall/alias/toggleItem",
		GoMethodName: "AliasToggleItem",
		Parameters: []ir.Parameter{
			{Name: "uuid", Required: true},
			{Name: "enabled", Default: "null"},
		},
		CRUDVerb:    "toggle",
		ModelItem:   alias,
		ItemJSONKey: "alias",
	}
	status := &ir.Endpoint{
		Methods:      []string{"GET"},
		Module:       "firewall",
		Controller:   "alias",
		Command:      "status",
		URLPath:      "/api/firewall/alias/status",
		GoMethodName: "AliasStatus",
	}
	return &ir.APISpec{
		Modules: []*ir.Module{
			{
				Name:     "firewall",
				Category: "core",
				Controllers: []*ir.Controller{
					{
						Name:      "AliasController",
						Endpoints: []*ir.Endpoint{search, get, add, toggle, status},
						Model:     &ir.Model{Items: []*ir.ModelItem{alias}},
					},
				},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	doc := Build(testSpec(), Options{Title: "Test API", Version: "1.2.3"})

	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "Test API", doc.Info.Title)
	assert.Equal(t, "1.2.3", doc.Info.Version)

	require.Contains(t, doc.Components.Schemas, "GenericResponse")
	require.Contains(t, doc.Components.Schemas, "FirewallAlias")

	item := doc.Components.Schemas["FirewallAlias"].Value
	require.Contains(t, item.Properties, "enabled")
	assert.Equal(t, []any{"0", "1"}, item.Properties["enabled"].Value.Enum)
	assert.Equal(t, "1", item.Properties["enabled"].Value.Default)
	assert.Equal(t, []any{"host", "network"}, item.Properties["type"].Value.Enum)
	// Volatile fields are never required inputs.
	assert.Equal(t, []string{"name"}, item.Required)

	require.Len(t, doc.Paths, 5)

	// Required params become path segments.
	getPath := doc.Paths["/api/firewall/alias/getItem/{uuid}"]
	require.NotNil(t, getPath)
	require.NotNil(t, getPath.Get)
	assert.Equal(t, "AliasGetItem", getPath.Get.OperationID)
	assert.Equal(t, []string{"firewall"}, getPath.Get.Tags)
	require.Len(t, getPath.Get.Parameters, 1)
	assert.Equal(t, "path", getPath.Get.Parameters[0].Value.In)
	assert.True(t, getPath.Get.Parameters[0].Value.Required)

	// The typed get response wraps the item under its JSON key.
	getResp := getPath.Get.Responses["200"].Value
	getSchema := getResp.Content["application/json"].Schema.Value
	require.Contains(t, getSchema.Properties, "alias")
	assert.Equal(t, "#/components/schemas/FirewallAlias", getSchema.Properties["alias"].Ref)

	// Search responses carry rows plus pagination counters.
	searchPath := doc.Paths["/api/firewall/alias/searchItem"]
	require.NotNil(t, searchPath)
	require.NotNil(t, searchPath.Post)
	searchSchema := searchPath.Post.Responses["200"].Value.Content["application/json"].Schema.Value
	require.Contains(t, searchSchema.Properties, "rows")
	assert.Equal(t, "#/components/schemas/FirewallAlias", searchSchema.Properties["rows"].Value.Items.Ref)
	assert.Contains(t, searchSchema.Properties, "rowCount")

	// Typed add wraps the request body under the item's JSON key.
	addPath := doc.Paths["/api/firewall/alias/addItem"]
	require.NotNil(t, addPath)
	require.NotNil(t, addPath.Post.RequestBody)
	addBody := addPath.Post.RequestBody.Value.Content["application/json"].Schema.Value
	require.Contains(t, addBody.Properties, "alias")
	addResp := addPath.Post.Responses["200"].Value.Content["application/json"].Schema
	assert.Equal(t, "#/components/schemas/GenericResponse", addResp.Ref)

	// Optional params surface as query parameters with their default noted.
	togglePath := doc.Paths["/api/firewall/alias/toggleItem/{uuid}"]
	require.NotNil(t, togglePath)
	require.Len(t, togglePath.Post.Parameters, 2)
	q := togglePath.Post.Parameters[1].Value
	assert.Equal(t, "query", q.In)
	assert.Equal(t, "enabled", q.Name)
	assert.Contains(t, q.Description, "Defaults to null")

	// Untyped GET endpoints keep a free-form object response and no body.
	statusPath := doc.Paths["/api/firewall/alias/status"]
	require.NotNil(t, statusPath)
	require.NotNil(t, statusPath.Get)
	assert.Nil(t, statusPath.Get.RequestBody)
}

func TestBuildSchemaNameCollision(t *testing.T) {
	itemA := &ir.ModelItem{Name: "alias", GoName: "Alias"}
	itemB := &ir.ModelItem{Name: "alias", GoName: "Alias"}
	spec := &ir.APISpec{
		Modules: []*ir.Module{
			{
				Name:     "firewall",
				Category: "core",
				Controllers: []*ir.Controller{
					{Name: "A", Model: &ir.Model{Items: []*ir.ModelItem{itemA}}},
				},
			},
			{
				Name:     "firewall",
				Category: "plugins",
				Controllers: []*ir.Controller{
					{Name: "B", Model: &ir.Model{Items: []*ir.ModelItem{itemB}}},
				},
			},
		},
	}

	doc := Build(spec, Options{})
	assert.Contains(t, doc.Components.Schemas, "FirewallAlias")
	assert.Contains(t, doc.Components.Schemas, "PluginsFirewallAlias")
}

func TestBuildSkipsAbstractControllers(t *testing.T) {
	spec := &ir.APISpec{
		Modules: []*ir.Module{
			{
				Name: "firewall",
				Controllers: []*ir.Controller{
					{
						Name:       "BaseController",
						IsAbstract: true,
						Endpoints:  []*ir.Endpoint{{Methods: []string{"GET"}, URLPath: "/api/x/y/z"}},
					},
				},
			},
		},
	}
	doc := Build(spec, Options{})
	assert.Empty(t, doc.Paths)
}

func TestEmit(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dist", "openapi.yaml")
	res, err := Emit(context.Background(), testSpec(), Options{Out: out})
	require.NoError(t, err)
	assert.Equal(t, out, res.OutPath)
	assert.Equal(t, 5, res.PathCount)
	assert.Equal(t, 2, res.SchemaCount)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "openapi: 3.0.3")
	assert.Contains(t, s, "/api/firewall/alias/getItem/{uuid}")
	assert.Contains(t, s, "FirewallAlias")
	assert.False(t, strings.Contains(s, ".tmp-"), "temp suffix leaked into output path")
}

func TestEmitDryRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "openapi.yaml")
	res, err := Emit(context.Background(), testSpec(), Options{Out: out, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 5, res.PathCount)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestEmitRequiresOut(t *testing.T) {
	_, err := Emit(context.Background(), testSpec(), Options{})
	require.Error(t, err)
}
