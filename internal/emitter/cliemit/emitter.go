// Package cliemit renders the generated cobra command tree: one file per
// OPNsense module under internal/cli/gen, plus register.go wiring every
// module command onto the root.
package cliemit

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

const defaultSDKModule = "github.com/jontk/opnsense-cli"

// Options controls how the CLI emitter renders generated command files.
type Options struct {
	OutDir    string // required; the internal/cli/gen directory of the SDK module
	SDKModule string // module path the generated imports point at
	Force     bool
	DryRun    bool
}

// Result reports the planned files and module command views.
type Result struct {
	SDKModule string
	Modules   []string
	Planned   []fileset.PlannedFile
}

// Emit renders the CLI command tree from a parsed API spec.
func Emit(ctx context.Context, spec *ir.APISpec, opts Options, log *zap.SugaredLogger) (*Result, error) {
	_ = ctx
	if spec == nil {
		return nil, errors.New("cliemit: nil spec")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, errors.New("cliemit: OutDir is required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	sdkModule := strings.TrimSpace(opts.SDKModule)
	if sdkModule == "" {
		sdkModule = defaultSDKModule
	}
	cliImport := sdkModule + "/internal/cli"
	runtimeImport := sdkModule + "/opnsense"

	set := fileset.New()
	var moduleViews []ModuleView
	seenPkgs := map[string]bool{}

	for _, module := range spec.Modules {
		hasEndpoints := false
		for _, ctrl := range module.Controllers {
			if !ctrl.IsAbstract && len(ctrl.Endpoints) > 0 {
				hasEndpoints = true
				break
			}
		}
		if !hasEndpoints {
			continue
		}

		pkg := names.ModuleToPackage(module.Name)
		if seenPkgs[pkg] {
			pkg = module.Category + pkg
		}
		seenPkgs[pkg] = true

		resources := CollectResources(module)
		if len(resources) == 0 {
			continue
		}

		goIdent := names.KebabToGoIdent(module.Name)
		for _, v := range moduleViews {
			if v.GoFileIdent == goIdent {
				goIdent = names.KebabToGoIdent(module.Category) + goIdent
				break
			}
		}

		// The cobra Use name is disambiguated independently; two modules can
		// still want the same command token (core vs plugins diagnostics).
		cliName := module.Name
		for _, v := range moduleViews {
			if v.CLIName == cliName {
				cliName = module.Category + "-" + module.Name
				break
			}
		}

		view := ModuleView{
			ModuleName:  module.Name,
			CLIName:     cliName,
			PackageName: pkg,
			GoFileIdent: goIdent,
			SDKPackage:  sdkModule + "/opnsense/" + pkg,
			Resources:   resources,
		}
		moduleViews = append(moduleViews, view)

		if err := set.AddGo(pkg+".go", renderModuleFile(view, cliImport, runtimeImport)); err != nil {
			log.Warnw("generated file kept unformatted", "module", module.Name, "error", err)
		}
	}

	sorted := append([]ModuleView(nil), moduleViews...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PackageName < sorted[j].PackageName })
	if err := set.AddGo("register.go", renderRegisterFile(sorted, cliImport)); err != nil {
		log.Warnw("generated file kept unformatted", "file", "register.go", "error", err)
	}

	moduleNames := make([]string, 0, len(moduleViews))
	for _, v := range moduleViews {
		moduleNames = append(moduleNames, v.ModuleName)
	}
	result := &Result{SDKModule: sdkModule, Modules: moduleNames, Planned: set.Plan()}
	if !opts.DryRun {
		if err := set.Write(opts.OutDir, opts.Force); err != nil {
			return nil, err
		}
	}
	return result, nil
}
