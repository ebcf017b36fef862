package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jontk/opnsense-gen/internal/ir"
)

func makeItem(name, container string) *ir.ModelItem {
	if container == "" {
		container = name + "s"
	}
	return &ir.ModelItem{Name: name, ContainerName: container}
}

func TestParseCRUD(t *testing.T) {
	cases := []struct {
		command string
		verb    string
		suffix  string
	}{
		{"add_item", "add", "item"},
		{"get_item", "get", "item"},
		{"set_item", "set", "item"},
		{"del_item", "del", "item"},
		{"search_item", "search", "item"},
		{"toggle_item", "toggle", "item"},
		{"add_host_alias", "add", "host_alias"},
		{"search_layer4_openvpn", "search", "layer4_openvpn"},
		{"set_x", "set", "x"},
		{"add_", "", ""},
		{"reconfigure", "", ""},
		{"flush_rules", "", ""},
		{"status", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		verb, suffix := ParseCRUD(tc.command)
		assert.Equal(t, tc.verb, verb, "verb for %q", tc.command)
		assert.Equal(t, tc.suffix, suffix, "suffix for %q", tc.command)
	}
}

func TestMatchItemExact(t *testing.T) {
	r := New(nil)

	t.Run("exact name", func(t *testing.T) {
		alias := makeItem("alias", "")
		rule := makeItem("rule", "")
		got := r.MatchItem("alias", "ctrl", []*ir.ModelItem{rule, alias}, "firewall")
		assert.Same(t, alias, got)
	})

	t.Run("case insensitive", func(t *testing.T) {
		alias := makeItem("Alias", "aliases")
		got := r.MatchItem("alias", "ctrl", []*ir.ModelItem{alias}, "firewall")
		assert.Same(t, alias, got)
	})

	t.Run("name preferred over container", func(t *testing.T) {
		// "rule" is both an item name and another item's container.
		byContainer := makeItem("entry", "rule")
		byName := makeItem("rule", "rules")
		got := r.MatchItem("rule", "ctrl", []*ir.ModelItem{byContainer, byName}, "firewall")
		assert.Same(t, byName, got)
	})

	t.Run("container match", func(t *testing.T) {
		item := makeItem("entry", "hosts")
		got := r.MatchItem("hosts", "ctrl", []*ir.ModelItem{item}, "firewall")
		assert.Same(t, item, got)
	})
}

func TestMatchItemNormalized(t *testing.T) {
	r := New(nil)

	t.Run("underscores dropped from suffix", func(t *testing.T) {
		item := makeItem("keypair", "keypairs")
		got := r.MatchItem("key_pair", "ctrl", []*ir.ModelItem{item}, "trust")
		assert.Same(t, item, got)
	})

	t.Run("underscores dropped from item name", func(t *testing.T) {
		item := makeItem("key_pair", "key_pairs")
		got := r.MatchItem("keypair", "ctrl", []*ir.ModelItem{item}, "trust")
		assert.Same(t, item, got)
	})

	t.Run("normalized container", func(t *testing.T) {
		item := makeItem("entry", "key_pairs")
		got := r.MatchItem("keypairs", "ctrl", []*ir.ModelItem{item}, "trust")
		assert.Same(t, item, got)
	})
}

func TestMatchItemPlural(t *testing.T) {
	r := New(nil)

	t.Run("simple s", func(t *testing.T) {
		item := makeItem("relays", "container")
		got := r.MatchItem("relay", "ctrl", []*ir.ModelItem{item}, "dhcrelay")
		assert.Same(t, item, got)
	})

	t.Run("y to ies", func(t *testing.T) {
		item := makeItem("entries", "container")
		got := r.MatchItem("entry", "ctrl", []*ir.ModelItem{item}, "mod")
		assert.Same(t, item, got)
	})

	t.Run("plural container", func(t *testing.T) {
		item := makeItem("something", "relays")
		got := r.MatchItem("relay", "ctrl", []*ir.ModelItem{item}, "mod")
		assert.Same(t, item, got)
	})

	t.Run("no false ies expansion", func(t *testing.T) {
		// "ab" does not end in y, so "abies" must not be derived; and the
		// startswith fallback requires at least three characters.
		item := makeItem("abies", "containerx")
		other := makeItem("other", "others")
		got := r.MatchItem("ab", "ctrl", []*ir.ModelItem{item, other}, "mod")
		assert.Nil(t, got)
	})
}

func TestMatchItemIng(t *testing.T) {
	r := New(nil)
	item := makeItem("forwarding", "container")
	got := r.MatchItem("forward", "ctrl", []*ir.ModelItem{item}, "unbound")
	assert.Same(t, item, got)
}

func TestMatchItemEndsWith(t *testing.T) {
	r := New(nil)

	t.Run("name ends with suffix", func(t *testing.T) {
		item := makeItem("dhcp_boot", "boots")
		got := r.MatchItem("boot", "ctrl", []*ir.ModelItem{item}, "dnsmasq")
		assert.Same(t, item, got)
	})

	t.Run("name ends with plural", func(t *testing.T) {
		item := makeItem("dhcp_tags", "container")
		got := r.MatchItem("tag", "ctrl", []*ir.ModelItem{item}, "dnsmasq")
		assert.Same(t, item, got)
	})

	t.Run("container ends with suffix", func(t *testing.T) {
		item := makeItem("entry", "static_routes")
		got := r.MatchItem("route", "ctrl", []*ir.ModelItem{item}, "mod")
		assert.Same(t, item, got)
	})

	t.Run("no trivial self match", func(t *testing.T) {
		// Equal-length candidates are exact matches, not endswith matches;
		// an unrelated equal-length name is simply no match.
		item := makeItem("boop", "containerz")
		got := r.MatchItem("boot", "ctrl", []*ir.ModelItem{item, makeItem("x", "y")}, "mod")
		assert.Nil(t, got)
	})
}

func TestMatchItemStrippedItemSuffix(t *testing.T) {
	r := New(nil)
	item := makeItem("gateway_item", "gateways")
	got := r.MatchItem("gateway", "ctrl", []*ir.ModelItem{item}, "routing")
	assert.Same(t, item, got)
}

func TestMatchItemCompound(t *testing.T) {
	r := New(nil)

	t.Run("concatenated form", func(t *testing.T) {
		item := makeItem("layer4openvpn", "container")
		got := r.MatchItem("layer4_openvpn", "ctrl", []*ir.ModelItem{item}, "proxy")
		assert.Same(t, item, got)
	})

	t.Run("last word preferred", func(t *testing.T) {
		host := makeItem("host", "hosts")
		alias := makeItem("alias", "aliases")
		got := r.MatchItem("host_alias", "ctrl", []*ir.ModelItem{host, alias}, "dnsmasq")
		assert.Same(t, alias, got)
	})

	t.Run("first word fallback", func(t *testing.T) {
		host := makeItem("host", "hosts")
		got := r.MatchItem("host_alias", "ctrl", []*ir.ModelItem{host}, "dnsmasq")
		assert.Same(t, host, got)
	})
}

func TestMatchItemStartsWith(t *testing.T) {
	r := New(nil)

	t.Run("name starts with suffix", func(t *testing.T) {
		item := makeItem("destinations", "destcontainer")
		got := r.MatchItem("dest", "ctrl", []*ir.ModelItem{item}, "mod")
		assert.Same(t, item, got)
	})

	t.Run("container starts with suffix", func(t *testing.T) {
		item := makeItem("something", "destinations")
		got := r.MatchItem("dest", "ctrl", []*ir.ModelItem{item}, "mod")
		assert.Same(t, item, got)
	})

	t.Run("requires three characters", func(t *testing.T) {
		item := makeItem("details", "detailcontainer")
		got := r.MatchItem("de", "ctrl", []*ir.ModelItem{item}, "mod")
		assert.Nil(t, got)
	})

	t.Run("exactly three characters", func(t *testing.T) {
		item := makeItem("destinations", "container")
		got := r.MatchItem("des", "ctrl", []*ir.ModelItem{item}, "mod")
		assert.Same(t, item, got)
	})

	t.Run("equal length handled by exact match", func(t *testing.T) {
		item := makeItem("dest", "container")
		got := r.MatchItem("dest", "ctrl", []*ir.ModelItem{item}, "mod")
		assert.Same(t, item, got)
	})
}

func TestMatchItemOverrides(t *testing.T) {
	r := New(nil)

	t.Run("clamav url", func(t *testing.T) {
		url := makeItem("url", "urls")
		list := makeItem("list", "lists")
		got := r.MatchItem("url", "url", []*ir.ModelItem{url, list}, "clamav")
		assert.Same(t, list, got)
	})

	t.Run("wol host", func(t *testing.T) {
		host := makeItem("host", "hosts")
		wol := makeItem("wolentry", "wolentries")
		got := r.MatchItem("host", "wol", []*ir.ModelItem{host, wol}, "wol")
		assert.Same(t, wol, got)
	})

	t.Run("module must match", func(t *testing.T) {
		url := makeItem("url", "urls")
		list := makeItem("list", "lists")
		got := r.MatchItem("url", "url", []*ir.ModelItem{url, list}, "other")
		assert.Same(t, url, got)
	})

	t.Run("extra overrides merge on top", func(t *testing.T) {
		extra := map[OverrideKey]string{
			{Module: "proxy", Controller: "acl", Suffix: "entry"}: "custompolicy",
		}
		custom := New(extra)
		policy := makeItem("custompolicy", "custompolicies")
		entry := makeItem("entry", "entries")
		got := custom.MatchItem("entry", "acl", []*ir.ModelItem{entry, policy}, "proxy")
		assert.Same(t, policy, got)
	})
}

func TestMatchItemGenericItemSuffix(t *testing.T) {
	r := New(nil)

	t.Run("controller name wins", func(t *testing.T) {
		alias := makeItem("alias", "aliases")
		got := r.MatchItem("item", "alias", []*ir.ModelItem{alias}, "firewall")
		assert.Same(t, alias, got)
	})

	t.Run("single item fallback", func(t *testing.T) {
		only := makeItem("something", "somethings")
		got := r.MatchItem("item", "unrelated_ctrl", []*ir.ModelItem{only}, "mod")
		assert.Same(t, only, got)
	})

	t.Run("no match across multiple items", func(t *testing.T) {
		a := makeItem("alpha", "alphas")
		b := makeItem("beta", "betas")
		got := r.MatchItem("item", "unrelated", []*ir.ModelItem{a, b}, "mod")
		assert.Nil(t, got)
	})
}

func TestMatchByController(t *testing.T) {
	t.Run("exact", func(t *testing.T) {
		alias := makeItem("alias", "aliases")
		assert.Same(t, alias, MatchByController("alias", []*ir.ModelItem{alias}))
	})

	t.Run("case insensitive", func(t *testing.T) {
		alias := makeItem("Alias", "aliases")
		assert.Same(t, alias, MatchByController("alias", []*ir.ModelItem{alias}))
	})

	t.Run("normalized via container", func(t *testing.T) {
		item := makeItem("key_pair", "keypairs")
		assert.Same(t, item, MatchByController("key_pairs", []*ir.ModelItem{item}))
	})

	t.Run("container", func(t *testing.T) {
		item := makeItem("something", "mycontroller")
		assert.Same(t, item, MatchByController("mycontroller", []*ir.ModelItem{item}))
	})

	t.Run("startswith", func(t *testing.T) {
		item := makeItem("tlsConfig", "configs")
		assert.Same(t, item, MatchByController("tls", []*ir.ModelItem{item}))
	})

	t.Run("startswith requires three characters", func(t *testing.T) {
		item := makeItem("abcdef", "container")
		other := makeItem("other", "others")
		assert.Nil(t, MatchByController("ab", []*ir.ModelItem{item, other}))
	})

	t.Run("single item fallback", func(t *testing.T) {
		only := makeItem("unrelated", "container")
		assert.Same(t, only, MatchByController("nomatch", []*ir.ModelItem{only}))
	})

	t.Run("no fallback for multiple items", func(t *testing.T) {
		a := makeItem("alpha", "alphas")
		b := makeItem("beta", "betas")
		assert.Nil(t, MatchByController("gamma", []*ir.ModelItem{a, b}))
	})
}

func makeEndpoint(command, controller, module string) *ir.Endpoint {
	return &ir.Endpoint{
		Methods:    []string{"POST"},
		Module:     module,
		Controller: controller,
		Command:    command,
	}
}

func buildModule(moduleName, controllerName string, items []*ir.ModelItem, endpoints []*ir.Endpoint) *ir.Module {
	if items == nil {
		items = []*ir.ModelItem{makeItem("alias", "aliases")}
	}
	if endpoints == nil {
		for _, cmd := range []string{"add_item", "get_item", "set_item", "del_item", "search_item", "reconfigure"} {
			endpoints = append(endpoints, makeEndpoint(cmd, controllerName, moduleName))
		}
	}
	model := &ir.Model{
		Mount: "OPNsense." + moduleName,
		Items: items,
	}
	ctrl := &ir.Controller{
		Name:      controllerName + "Controller",
		PHPFile:   controllerName + "Controller.php",
		Endpoints: endpoints,
		Model:     model,
	}
	return &ir.Module{Name: moduleName, Category: "core", Controllers: []*ir.Controller{ctrl}}
}

func TestResolve(t *testing.T) {
	t.Run("crud endpoints annotated", func(t *testing.T) {
		module := buildModule("firewall", "alias", nil, nil)
		New(nil).Resolve([]*ir.Module{module})

		var crud []*ir.Endpoint
		for _, ep := range module.Controllers[0].Endpoints {
			if ep.CRUDVerb != "" {
				crud = append(crud, ep)
			}
		}
		require.Len(t, crud, 5)
		for _, ep := range crud {
			require.NotNil(t, ep.ModelItem)
			assert.Equal(t, "alias", ep.ModelItem.Name)
			assert.Equal(t, "alias", ep.ItemJSONKey)
		}
	})

	t.Run("non crud endpoint untouched", func(t *testing.T) {
		module := buildModule("firewall", "alias", nil, nil)
		New(nil).Resolve([]*ir.Module{module})

		for _, ep := range module.Controllers[0].Endpoints {
			if ep.Command == "reconfigure" {
				assert.Empty(t, ep.CRUDVerb)
				assert.Nil(t, ep.ModelItem)
			}
		}
	})

	t.Run("controller without model skipped", func(t *testing.T) {
		module := buildModule("firewall", "alias", nil, nil)
		module.Controllers[0].Model = nil
		New(nil).Resolve([]*ir.Module{module})

		for _, ep := range module.Controllers[0].Endpoints {
			assert.Empty(t, ep.CRUDVerb)
			assert.Nil(t, ep.ModelItem)
		}
	})

	t.Run("empty model items skipped", func(t *testing.T) {
		module := buildModule("firewall", "alias", []*ir.ModelItem{}, nil)
		New(nil).Resolve([]*ir.Module{module})

		for _, ep := range module.Controllers[0].Endpoints {
			assert.Empty(t, ep.CRUDVerb)
		}
	})

	t.Run("direct suffix match", func(t *testing.T) {
		alias := makeItem("alias", "aliases")
		ep := makeEndpoint("add_alias", "alias", "firewall")
		module := buildModule("firewall", "alias", []*ir.ModelItem{alias}, []*ir.Endpoint{ep})
		New(nil).Resolve([]*ir.Module{module})

		assert.Equal(t, "add", ep.CRUDVerb)
		assert.Same(t, alias, ep.ModelItem)
	})

	t.Run("multiple items matched independently", func(t *testing.T) {
		alias := makeItem("alias", "aliases")
		rule := makeItem("rule", "rules")
		epAlias := makeEndpoint("add_alias", "test", "firewall")
		epRule := makeEndpoint("del_rule", "test", "firewall")
		module := buildModule("firewall", "test", []*ir.ModelItem{alias, rule}, []*ir.Endpoint{epAlias, epRule})
		New(nil).Resolve([]*ir.Module{module})

		assert.Same(t, alias, epAlias.ModelItem)
		assert.Same(t, rule, epRule.ModelItem)
	})

	t.Run("manual override end to end", func(t *testing.T) {
		url := makeItem("url", "urls")
		list := makeItem("list", "lists")
		ep := makeEndpoint("add_url", "url", "clamav")
		module := buildModule("clamav", "url", []*ir.ModelItem{url, list}, []*ir.Endpoint{ep})
		New(nil).Resolve([]*ir.Module{module})

		assert.Equal(t, "add", ep.CRUDVerb)
		assert.Same(t, list, ep.ModelItem)
		assert.Equal(t, "list", ep.ItemJSONKey)
	})

	t.Run("multiple modules", func(t *testing.T) {
		mod1 := buildModule("firewall", "alias", nil, nil)
		mod2 := buildModule("proxy", "proxy", []*ir.ModelItem{makeItem("proxy", "proxies")}, nil)
		New(nil).Resolve([]*ir.Module{mod1, mod2})

		for _, mod := range []*ir.Module{mod1, mod2} {
			count := 0
			for _, ep := range mod.Controllers[0].Endpoints {
				if ep.CRUDVerb != "" {
					count++
				}
			}
			assert.Equal(t, 5, count, "module %s", mod.Name)
		}
	})

	t.Run("unmatched suffix stays untyped", func(t *testing.T) {
		alias := makeItem("alias", "aliases")
		ep := makeEndpoint("add_nonexistent", "test", "firewall")
		module := buildModule("firewall", "test", []*ir.ModelItem{alias}, []*ir.Endpoint{ep})
		New(nil).Resolve([]*ir.Module{module})

		assert.Empty(t, ep.CRUDVerb)
		assert.Nil(t, ep.ModelItem)
	})

	t.Run("toggle verb", func(t *testing.T) {
		alias := makeItem("alias", "aliases")
		ep := makeEndpoint("toggle_alias", "test", "firewall")
		module := buildModule("firewall", "test", []*ir.ModelItem{alias}, []*ir.Endpoint{ep})
		New(nil).Resolve([]*ir.Module{module})

		assert.Equal(t, "toggle", ep.CRUDVerb)
		assert.Same(t, alias, ep.ModelItem)
	})
}

func TestLoadOverrides(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overrides.yaml")
		content := `overrides:
  - module: Proxy
    controller: ACL
    suffix: Entry
    item: CustomPolicy
  - module: clamav
    controller: url
    suffix: url
    item: list
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		got, err := LoadOverrides(path)
		require.NoError(t, err)
		assert.Equal(t, map[OverrideKey]string{
			{Module: "proxy", Controller: "acl", Suffix: "entry"}: "custompolicy",
			{Module: "clamav", Controller: "url", Suffix: "url"}:  "list",
		}, got)
	})

	t.Run("missing field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overrides.yaml")
		content := `overrides:
  - module: proxy
    controller: acl
    item: custompolicy
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		_, err := LoadOverrides(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entry 0")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overrides.yaml")
		require.NoError(t, os.WriteFile(path, []byte(":\n  - ["), 0o600))

		_, err := LoadOverrides(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadOverrides(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
