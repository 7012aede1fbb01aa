// Command riskmap inspects the built-in relation catalogs and widget
// configuration without a running server or database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/extensions/core"
	"github.com/asakaida/riskmap/internal/extensions/risks"
	"github.com/asakaida/riskmap/internal/infrastructure/config"
	"github.com/asakaida/riskmap/internal/infrastructure/logging"
	"github.com/asakaida/riskmap/internal/repositories/memory"
	"github.com/asakaida/riskmap/internal/services"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	formatYAML = "yaml"
	formatJSON = "json"
)

type options struct {
	env      string
	logLevel string
	output   string
}

// runtime holds the offline catalog service seeded with the built-in catalogs
type runtime struct {
	service *services.CatalogService
	ext     *risks.Extension
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "riskmap",
		Short: "Inspect RiskMap relation catalogs and widgets",
		Long: `Inspect RiskMap relation catalogs and widgets.
Every command works on the built-in ggrc_core and ggrc_risks catalogs in memory.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.env, "env", "e", "dev", "Environment to use (dev, test, prod)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", formatYAML, "Output format (yaml, json)")

	root.AddCommand(
		newCatalogCmd(opts),
		newValidateCmd(opts),
		newRelationsCmd(opts),
		newExpandCmd(opts),
		newWidgetsCmd(opts),
		newComponentsCmd(opts),
	)
	return root
}

// newRuntime loads configuration and stores the built-in catalogs in a memory repository
func newRuntime(ctx context.Context, opts *options) (*runtime, error) {
	if err := config.InitConfig(opts.env); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := config.LoadWithoutDatabase()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(config.LogConfig{Level: opts.logLevel, Format: "console"})
	if err != nil {
		return nil, err
	}

	var searchPath *regexp.Regexp
	if cfg.Widgets.SearchPath != "" {
		searchPath = regexp.MustCompile(cfg.Widgets.SearchPath)
	}
	ext, err := risks.New(risks.Options{
		TreeDepth:  cfg.Widgets.TreeDepth,
		SearchPath: searchPath,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	service := services.NewCatalogService(memory.NewCatalogRepository(), services.CatalogServiceOptions{Logger: logger})
	for _, def := range []*entities.CatalogDefinition{core.Definition(), ext.Catalog().Definition} {
		if _, _, err := service.EnsureCatalog(ctx, def); err != nil {
			return nil, fmt.Errorf("failed to load %s catalog: %w", def.Module, err)
		}
	}

	return &runtime{service: service, ext: ext}, nil
}

// writeOutput encodes v in the requested format
func writeOutput(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
