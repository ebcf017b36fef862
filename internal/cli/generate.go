package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jontk/opnsense-gen/internal/emitter/cliemit"
	"github.com/jontk/opnsense-gen/internal/emitter/fileset"
	"github.com/jontk/opnsense-gen/internal/emitter/oasemit"
	"github.com/jontk/opnsense-gen/internal/emitter/sdkemit"
	"github.com/jontk/opnsense-gen/internal/ir"
	"github.com/jontk/opnsense-gen/internal/parser"
	"github.com/jontk/opnsense-gen/internal/resolver"
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Docs       string // crawled markdown docs root (with core/, plugins/, be/)
	Models     string // XML model tree root
	Out        string // SDK output directory
	CLIOut     string // generated CLI command directory
	SDKModule  string // module path generated imports point at
	Overrides  string // optional resolver overrides YAML
	OpenAPI    string // optional OpenAPI YAML output path; empty skips export
	ConfigPath string
	DryRun     bool
	Force      bool
	Verbose    bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Out:       "opnsense",
		CLIOut:    filepath.Join("internal", "cli", "gen"),
		SDKModule: "github.com/jontk/opnsense-cli",
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the SDK and CLI sources from docs and models",
		Long: "Generate the typed SDK packages and the CLI command tree from crawled " +
			"documentation tables and XML model schemas. Options can be provided via " +
			"flags, a config file, or defaults.",
		Example: strings.TrimSpace(`  opnsense-gen generate --docs ./docs --models ./models --out ./opnsense
  opnsense-gen --config gen.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("docs", "", "Directory with crawled markdown docs (core/, plugins/, be/)")
	flags.String("models", "", "Directory with the OPNsense XML model tree")
	flags.String("out", "", "SDK output directory (default \"opnsense\")")
	flags.String("cli-out", "", "CLI output directory (default \"internal/cli/gen\")")
	flags.String("sdk-module", "", "Module path generated imports point at")
	flags.String("overrides", "", "YAML file with extra endpoint-to-item overrides")
	flags.String("openapi", "", "Also export an OpenAPI document to this path")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	stringFlags := map[string]*string{
		"docs":       &cfg.Docs,
		"models":     &cfg.Models,
		"out":        &cfg.Out,
		"cli-out":    &cfg.CLIOut,
		"sdk-module": &cfg.SDKModule,
		"overrides":  &cfg.Overrides,
		"openapi":    &cfg.OpenAPI,
	}
	for name, target := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*target = strings.TrimSpace(value)
	}

	boolFlags := map[string]*bool{
		"dry-run": &cfg.DryRun,
		"force":   &cfg.Force,
		"verbose": &cfg.Verbose,
	}
	for name, target := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*target = value
	}
	return nil
}

func (c *GenerateConfig) normalize() {
	c.Docs = strings.TrimSpace(c.Docs)
	c.Models = strings.TrimSpace(c.Models)
	c.Out = strings.TrimSpace(c.Out)
	c.CLIOut = strings.TrimSpace(c.CLIOut)
	c.SDKModule = strings.TrimSpace(c.SDKModule)
	c.Overrides = strings.TrimSpace(c.Overrides)
	c.OpenAPI = strings.TrimSpace(c.OpenAPI)
}

func (c *GenerateConfig) validate() error {
	if c.Docs == "" {
		return newUsageError("generate: --docs is required (set via flag or config file)")
	}
	if c.Out == "" {
		return newUsageError("generate: --out must not be empty")
	}
	if c.CLIOut == "" {
		return newUsageError("generate: --cli-out must not be empty")
	}
	if c.SDKModule == "" {
		return newUsageError("generate: --sdk-module must not be empty")
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	log, sync := newLogger(cfg.Verbose)
	defer sync()

	// 1) Parse the markdown docs into modules.
	modules, err := parser.ParseDocs(cfg.Docs, log)
	if err != nil {
		return fmt.Errorf("parse docs: %w", err)
	}
	if len(modules) == 0 {
		return newUsageErrorf("generate: no modules found under %q", cfg.Docs)
	}
	log.Infow("parsed docs", "modules", len(modules))

	// 2) Parse the XML models and link them by model URL.
	models, err := parser.ParseModels(cfg.Models, log)
	if err != nil {
		return fmt.Errorf("parse models: %w", err)
	}
	linked := 0
	for _, module := range modules {
		for _, ctrl := range module.Controllers {
			if ctrl.ModelURL == "" {
				continue
			}
			if m := parser.MatchModelURL(models, ctrl.ModelURL); m != nil {
				ctrl.Model = m
				linked++
			}
		}
	}
	log.Infow("parsed models", "models", len(models), "linked", linked)

	// 3) Resolve CRUD endpoints to model items.
	var extra map[resolver.OverrideKey]string
	if cfg.Overrides != "" {
		extra, err = resolver.LoadOverrides(cfg.Overrides)
		if err != nil {
			return newUsageErrorf("generate: %v", err)
		}
	}
	resolver.New(extra).Resolve(modules)

	spec := &ir.APISpec{Modules: modules, Models: models}

	// 4) Emit the SDK packages.
	absOut := absDisplayPath(cfg.Out)
	sdkRes, err := sdkemit.Emit(ctx, spec, sdkemit.Options{
		OutDir:    cfg.Out,
		SDKModule: cfg.SDKModule,
		Force:     cfg.Force,
		DryRun:    cfg.DryRun,
	}, log)
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	log.Infow("emitted sdk", "packages", len(sdkRes.Packages), "files", len(sdkRes.Planned))

	// 5) Emit the CLI command tree.
	absCLIOut := absDisplayPath(cfg.CLIOut)
	cliRes, err := cliemit.Emit(ctx, spec, cliemit.Options{
		OutDir:    cfg.CLIOut,
		SDKModule: cfg.SDKModule,
		Force:     cfg.Force,
		DryRun:    cfg.DryRun,
	}, log)
	if err != nil {
		return wrapOutputError(err, absCLIOut)
	}
	log.Infow("emitted cli", "modules", len(cliRes.Modules), "files", len(cliRes.Planned))

	// 6) Optionally export the OpenAPI document.
	if cfg.OpenAPI != "" {
		oasRes, err := oasemit.Emit(ctx, spec, oasemit.Options{
			Out:    cfg.OpenAPI,
			DryRun: cfg.DryRun,
		})
		if err != nil {
			return wrapOutputError(err, absDisplayPath(cfg.OpenAPI))
		}
		log.Infow("exported openapi", "paths", oasRes.PathCount, "schemas", oasRes.SchemaCount)
	}

	if cfg.DryRun {
		printPlan(absOut, sdkRes.Planned)
		printPlan(absCLIOut, cliRes.Planned)
	}
	return nil
}

func absDisplayPath(p string) string {
	if ap, err := filepath.Abs(p); err == nil {
		return ap
	}
	return p
}

func printPlan(outDir string, planned []fileset.PlannedFile) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, len(planned))
	for _, p := range planned {
		fmt.Fprintf(os.Stdout, "- %s\n", p.RelPath)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageErrorf("output error for %s: %s\nHint: choose a different output directory or use --force when appropriate.", outDir, msg)
	}
	return err
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageErrorf("read config file %q: %v", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageErrorf("parse config file %q: %v", path, err)
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		switch normalized {
		case "docs":
			if err := assignString(&cfg.Docs, key, value); err != nil {
				return err
			}
		case "models":
			if err := assignString(&cfg.Models, key, value); err != nil {
				return err
			}
		case "out":
			if err := assignString(&cfg.Out, key, value); err != nil {
				return err
			}
		case "cliout":
			if err := assignString(&cfg.CLIOut, key, value); err != nil {
				return err
			}
		case "sdkmodule":
			if err := assignString(&cfg.SDKModule, key, value); err != nil {
				return err
			}
		case "overrides":
			if err := assignString(&cfg.Overrides, key, value); err != nil {
				return err
			}
		case "openapi":
			if err := assignString(&cfg.OpenAPI, key, value); err != nil {
				return err
			}
		case "dryrun":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageErrorf("config field %q: %v", key, err)
			}
			cfg.DryRun = val
		case "force":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageErrorf("config field %q: %v", key, err)
			}
			cfg.Force = val
		case "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageErrorf("config field %q: %v", key, err)
			}
			cfg.Verbose = val
		default:
			return newUsageErrorf("config file %q: unknown field %q", path, key)
		}
	}

	return nil
}

func assignString(target *string, key string, value any) error {
	str, err := valueAsString(value)
	if err != nil {
		return newUsageErrorf("config field %q: %v", key, err)
	}
	*target = str
	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}
