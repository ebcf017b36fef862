// Package resolver links CRUD-shaped endpoints to the model items they
// operate on. The linkage has no authoritative signal to work from beyond
// naming conventions, so matching is a fixed ladder of heuristics applied in
// priority order, first hit wins. An endpoint that matches nothing simply
// stays untyped; that is the expected outcome for non-CRUD commands.
package resolver

import (
	"strings"

	"github.com/jontk/opnsense-gen/internal/ir"
)

var crudPrefixes = []string{"add_", "set_", "get_", "del_", "search_", "toggle_"}

// OverrideKey identifies one endpoint whose suffix names something unrelated
// to the item it actually touches.
type OverrideKey struct {
	Module     string
	Controller string
	Suffix     string
}

// defaultOverrides covers the handful of real endpoints where no heuristic
// can work (e.g. clamav's add_url writes to the "list" item).
var defaultOverrides = map[OverrideKey]string{
	{Module: "clamav", Controller: "url", Suffix: "url"}: "list",
	{Module: "wol", Controller: "wol", Suffix: "host"}:   "wolentry",
}

// Resolver annotates endpoints with their CRUD verb and matched model item.
type Resolver struct {
	overrides map[OverrideKey]string
}

// New returns a Resolver with the built-in override table. Extra overrides
// (e.g. loaded from a YAML file) are merged on top.
func New(extra map[OverrideKey]string) *Resolver {
	overrides := make(map[OverrideKey]string, len(defaultOverrides)+len(extra))
	for k, v := range defaultOverrides {
		overrides[k] = v
	}
	for k, v := range extra {
		overrides[k] = v
	}
	return &Resolver{overrides: overrides}
}

// Resolve walks every endpoint of every controller that has a linked model
// and annotates the CRUD-shaped ones. Each endpoint is resolved exactly once
// and independently; nothing else in the graph is touched.
func (r *Resolver) Resolve(modules []*ir.Module) {
	for _, module := range modules {
		for _, ctrl := range module.Controllers {
			if ctrl.Model == nil || len(ctrl.Model.Items) == 0 {
				continue
			}
			for _, ep := range ctrl.Endpoints {
				verb, suffix := ParseCRUD(ep.Command)
				if verb == "" {
					continue
				}
				item := r.MatchItem(suffix, ep.Controller, ctrl.Model.Items, module.Name)
				if item != nil {
					ep.CRUDVerb = verb
					ep.ModelItem = item
					ep.ItemJSONKey = item.Name
				}
			}
		}
	}
}

// ParseCRUD splits a command like "add_item" into ("add", "item"). A command
// without a CRUD prefix, or a bare prefix with no suffix, yields ("", "").
func ParseCRUD(command string) (verb, suffix string) {
	for _, prefix := range crudPrefixes {
		if strings.HasPrefix(command, prefix) {
			suffix = command[len(prefix):]
			if suffix == "" {
				return "", ""
			}
			return strings.TrimSuffix(prefix, "_"), suffix
		}
	}
	return "", ""
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}

// matchFn is one rung of the ladder: it either selects an item or passes.
type matchFn func(suffix, suffixNorm string, items []*ir.ModelItem) *ir.ModelItem

// ladder is the suffix-matching priority order. Each strategy is independent
// and the first non-nil result wins.
var ladder = []matchFn{
	matchExactName,
	matchExactContainer,
	matchNormalizedName,
	matchNormalizedContainer,
	matchPlural,
	matchIng,
	matchEndsWith,
	matchStrippedItemSuffix,
	matchCompound,
	matchStartsWith,
}

// MatchItem resolves a CRUD suffix against a model's items. The override
// table is consulted first; the generic "item" suffix delegates to
// controller-name matching; everything else runs down the ladder.
func (r *Resolver) MatchItem(suffix, controller string, items []*ir.ModelItem, moduleName string) *ir.ModelItem {
	suffixLower := strings.ToLower(suffix)
	suffixNorm := normalize(suffix)

	if target, ok := r.overrides[OverrideKey{Module: moduleName, Controller: controller, Suffix: suffixLower}]; ok {
		for _, item := range items {
			if strings.ToLower(item.Name) == target {
				return item
			}
		}
	}

	if suffixLower == "item" {
		return MatchByController(controller, items)
	}

	for _, strategy := range ladder {
		if item := strategy(suffixLower, suffixNorm, items); item != nil {
			return item
		}
	}
	return nil
}

func matchExactName(suffix, _ string, items []*ir.ModelItem) *ir.ModelItem {
	for _, item := range items {
		if strings.ToLower(item.Name) == suffix {
			return item
		}
	}
	return nil
}

func matchExactContainer(suffix, _ string, items []*ir.ModelItem) *ir.ModelItem {
	for _, item := range items {
		if strings.ToLower(item.ContainerName) == suffix {
			return item
		}
	}
	return nil
}

func matchNormalizedName(_, suffixNorm string, items []*ir.ModelItem) *ir.ModelItem {
	for _, item := range items {
		if normalize(item.Name) == suffixNorm {
			return item
		}
	}
	return nil
}

func matchNormalizedContainer(_, suffixNorm string, items []*ir.ModelItem) *ir.ModelItem {
	for _, item := range items {
		if normalize(item.ContainerName) == suffixNorm {
			return item
		}
	}
	return nil
}

// plurals returns the simple plural forms tried for a suffix: +s always,
// y→ies when it applies. "entrys" is never generated.
func plurals(suffix string) []string {
	forms := []string{suffix + "s"}
	if strings.HasSuffix(suffix, "y") {
		forms = append(forms, suffix[:len(suffix)-1]+"ies")
	}
	return forms
}

func matchPlural(suffix, _ string, items []*ir.ModelItem) *ir.ModelItem {
	for _, plural := range plurals(suffix) {
		for _, item := range items {
			if strings.ToLower(item.Name) == plural {
				return item
			}
		}
		for _, item := range items {
			if strings.ToLower(item.ContainerName) == plural {
				return item
			}
		}
	}
	return nil
}

// matchIng covers verb-derived item names like forward → forwarding.
func matchIng(suffix, _ string, items []*ir.ModelItem) *ir.ModelItem {
	for _, item := range items {
		if strings.ToLower(item.Name) == suffix+"ing" {
			return item
		}
	}
	return nil
}

// matchEndsWith accepts an item whose (normalized) name or container ends
// with the suffix or one of its plurals, provided the candidate is strictly
// longer, so a suffix never matches itself as a trivial substring.
func matchEndsWith(suffix, suffixNorm string, items []*ir.ModelItem) *ir.ModelItem {
	candidates := []string{suffixNorm}
	for _, p := range plurals(suffix) {
		candidates = append(candidates, normalize(p))
	}
	for _, candidate := range candidates {
		for _, item := range items {
			nameNorm := normalize(item.Name)
			if len(nameNorm) > len(candidate) && strings.HasSuffix(nameNorm, candidate) {
				return item
			}
		}
		for _, item := range items {
			containerNorm := normalize(item.ContainerName)
			if len(containerNorm) > len(candidate) && strings.HasSuffix(containerNorm, candidate) {
				return item
			}
		}
	}
	return nil
}

// matchStrippedItemSuffix equates gateway with a gateway_item template.
func matchStrippedItemSuffix(suffix, _ string, items []*ir.ModelItem) *ir.ModelItem {
	for _, item := range items {
		nameLower := strings.ToLower(item.Name)
		stripped := strings.TrimSuffix(nameLower, "_item")
		if stripped != nameLower && stripped == suffix {
			return item
		}
	}
	return nil
}

// matchCompound handles multi-word suffixes: the concatenated form first,
// then the last segment, then the first (host_alias resolves to alias, not
// host, when both exist).
func matchCompound(suffix, _ string, items []*ir.ModelItem) *ir.ModelItem {
	if !strings.Contains(suffix, "_") {
		return nil
	}
	parts := strings.Split(suffix, "_")

	concatenated := strings.Join(parts, "")
	for _, item := range items {
		if normalize(item.Name) == concatenated {
			return item
		}
	}

	last := parts[len(parts)-1]
	for _, item := range items {
		if strings.ToLower(item.Name) == last {
			return item
		}
	}

	first := parts[0]
	for _, item := range items {
		if strings.ToLower(item.Name) == first {
			return item
		}
	}
	return nil
}

// matchStartsWith is the broadest fallback (dest → destinations). Suffixes
// under 3 characters are rejected outright; they would match almost anything.
func matchStartsWith(_, suffixNorm string, items []*ir.ModelItem) *ir.ModelItem {
	if len(suffixNorm) < 3 {
		return nil
	}
	for _, item := range items {
		nameNorm := normalize(item.Name)
		if len(nameNorm) > len(suffixNorm) && strings.HasPrefix(nameNorm, suffixNorm) {
			return item
		}
	}
	for _, item := range items {
		containerNorm := normalize(item.ContainerName)
		if len(containerNorm) > len(suffixNorm) && strings.HasPrefix(containerNorm, suffixNorm) {
			return item
		}
	}
	return nil
}

// MatchByController is the reduced ladder used for the generic "item"
// suffix: exact, normalized name, normalized container, startswith, and,
// only when the model has exactly one item, that item unconditionally.
func MatchByController(controller string, items []*ir.ModelItem) *ir.ModelItem {
	controllerLower := strings.ToLower(controller)
	controllerNorm := normalize(controller)

	for _, item := range items {
		if strings.ToLower(item.Name) == controllerLower {
			return item
		}
	}
	for _, item := range items {
		if normalize(item.Name) == controllerNorm {
			return item
		}
	}
	for _, item := range items {
		if normalize(item.ContainerName) == controllerNorm {
			return item
		}
	}
	if len(controllerNorm) >= 3 {
		for _, item := range items {
			nameNorm := normalize(item.Name)
			if len(nameNorm) > len(controllerNorm) && strings.HasPrefix(nameNorm, controllerNorm) {
				return item
			}
		}
	}
	if len(items) == 1 {
		return items[0]
	}
	return nil
}
