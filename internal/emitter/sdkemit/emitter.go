// Package sdkemit renders the typed Go SDK: one package per OPNsense module
// with a Client, endpoint methods, and model item structs, plus the api
// aggregate package.
package sdkemit

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jontk/opnsense-gen/internal/emitter/fileset"
	"github.com/jontk/opnsense-gen/internal/ir"
	"github.com/jontk/opnsense-gen/internal/names"
)

// defaultSDKModule is the module path generated imports point at when the
// caller does not override it.
const defaultSDKModule = "github.com/jontk/opnsense-cli"

// Options controls how the SDK emitter renders generated packages.
type Options struct {
	OutDir    string // required; the opnsense/ directory of the SDK module
	SDKModule string // module path of the SDK; defaults to defaultSDKModule
	Force     bool   // overwrite a non-empty output directory
	DryRun    bool   // plan only, write nothing
}

// Result reports the planned files and resolved names.
type Result struct {
	SDKModule string
	Packages  []string
	Planned   []fileset.PlannedFile
}

// Emit renders the full SDK from a parsed API spec.
func Emit(ctx context.Context, spec *ir.APISpec, opts Options, log *zap.SugaredLogger) (*Result, error) {
	_ = ctx
	if spec == nil {
		return nil, errors.New("sdkemit: nil spec")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, errors.New("sdkemit: OutDir is required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	sdkModule := strings.TrimSpace(opts.SDKModule)
	if sdkModule == "" {
		sdkModule = defaultSDKModule
	}
	// Generated packages live next to the hand-written runtime package, so
	// both share the same import base.
	runtimeImport := sdkModule + "/opnsense"

	set := fileset.New()
	var moduleViews []ModuleView
	var pkgs []string
	seenPkgs := map[string]bool{}
	seenFields := map[string]bool{}

	for _, module := range spec.Modules {
		endpoints := CollectEndpoints(module)
		if len(endpoints) == 0 {
			continue
		}
		pkg := PackageFor(module, seenPkgs)
		pkgs = append(pkgs, pkg)

		epViews := make([]EndpointView, 0, len(endpoints))
		for _, ep := range endpoints {
			epViews = append(epViews, NewEndpointView(ep))
		}
		if err := set.AddGo(pkg+"/"+pkg+".go", renderModuleFile(pkg, module.Name, runtimeImport, epViews)); err != nil {
			log.Warnw("generated file kept unformatted", "module", module.Name, "error", err)
		}

		if items := CollectModelItems(module); len(items) > 0 {
			itemViews := make([]TypeItemView, 0, len(items))
			for _, item := range items {
				itemViews = append(itemViews, NewTypeItemView(item))
			}
			wrappers := CollectResponseWrappers(epViews)
			if err := set.AddGo(pkg+"/types.go", renderTypesFile(pkg, runtimeImport, itemViews, wrappers)); err != nil {
				log.Warnw("generated file kept unformatted", "module", module.Name, "error", err)
			}
		}

		fieldName := ModuleFieldName(module.Name)
		if seenFields[fieldName] {
			fieldName = names.KebabToGoIdent(module.Category) + fieldName
		}
		seenFields[fieldName] = true
		moduleViews = append(moduleViews, ModuleView{PackageName: pkg, FieldName: fieldName})
	}

	if len(moduleViews) > 0 {
		sort.Slice(moduleViews, func(i, j int) bool {
			return moduleViews[i].PackageName < moduleViews[j].PackageName
		})
		if err := set.AddGo("api/api.go", renderAPIFile(runtimeImport, runtimeImport, moduleViews)); err != nil {
			log.Warnw("generated file kept unformatted", "file", "api/api.go", "error", err)
		}
	}

	result := &Result{SDKModule: sdkModule, Packages: pkgs, Planned: set.Plan()}
	if !opts.DryRun {
		if err := set.Write(opts.OutDir, opts.Force); err != nil {
			return nil, err
		}
	}
	return result, nil
}
