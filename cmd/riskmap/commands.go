package main

import (
	"fmt"
	"os"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/extensions/core"
	"github.com/asakaida/riskmap/internal/extensions/risks"
	"github.com/asakaida/riskmap/internal/handlers"
	"github.com/asakaida/riskmap/internal/services/catalog"
	"github.com/asakaida/riskmap/internal/services/widgets"
	"github.com/asakaida/riskmap/internal/viewmodel"
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *options) *cobra.Command {
	module := risks.ModuleName

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the DSL of a built-in catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}

			stored, err := rt.service.ReadCatalog(cmd.Context(), module, "")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stored.DSL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&module, "module", "m", module, "Catalog module (ggrc_core, ggrc_risks)")
	return cmd
}

func newValidateCmd(opts *options) *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate catalog DSL against the built-in catalogs",
		Long: `Validate catalog DSL against the built-in catalogs.
The file replaces the stored catalog of the same module, if any, for validation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dsl, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read catalog file: %w", err)
			}

			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if err := rt.service.ValidateCatalog(cmd.Context(), module, string(dsl)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&module, "module", "m", "", "Catalog module the file defines, required when the file has no module declaration")
	return cmd
}

func newRelationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "relations <type>",
		Short: "List the relations of an object type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			registry, err := rt.service.Registry(cmd.Context())
			if err != nil {
				return err
			}

			relations := registry.Relations(entities.TypeName(args[0]))
			if len(relations) == 0 {
				return fmt.Errorf("%w: %s", entities.ErrTypeNotFound, args[0])
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, map[string]interface{}{
				"type":      args[0],
				"relations": relations,
			})
		},
	}
}

func newExpandCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "expand <type> <relation>",
		Short: "Show how a relation is composed and which types it yields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			registry, err := rt.service.Registry(cmd.Context())
			if err != nil {
				return err
			}

			t := entities.TypeName(args[0])
			expander := catalog.NewExpander(registry)
			tree, err := expander.Expand(t, args[1])
			if err != nil {
				return err
			}
			targets, bounded, err := expander.Targets(t, args[1])
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), opts.output, map[string]interface{}{
				"tree":    handlers.ExpandNodeToMap(tree),
				"targets": typeNames(targets),
				"bounded": bounded,
			})
		},
	}
}

func newWidgetsCmd(opts *options) *cobra.Command {
	var subjectType, subjectID, path string

	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "Show the widgets registered for a page load",
		Example: `  riskmap widgets --subject-type Risk --subject-id 1 --path /risks/1
  riskmap widgets --subject-type Person --subject-id 7 --path /objectBrowser -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subjectID != "" && subjectType == "" {
				return fmt.Errorf("--subject-type is required when --subject-id is set")
			}

			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}

			page := entities.PageContext{Path: path}
			if subjectType != "" {
				page.Subject = &entities.Subject{Type: entities.TypeName(subjectType), ID: subjectID}
			}

			result, err := rt.ext.InitWidgets(cmd.Context(), page, core.TreeView(), widgets.NewListRegistry())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, handlers.ResultToMap(result))
		},
	}

	cmd.Flags().StringVar(&subjectType, "subject-type", "", "Type of the page subject (e.g., Risk, Person)")
	cmd.Flags().StringVar(&subjectID, "subject-id", "", "Id of the page subject")
	cmd.Flags().StringVar(&path, "path", "", "URL path of the page")
	return cmd
}

func newComponentsCmd(opts *options) *cobra.Command {
	var templateRoot string

	cmd := &cobra.Command{
		Use:   "components",
		Short: "List the registered page components and their templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := viewmodel.NewComponentRegistry()
			if err := viewmodel.RegisterDefaults(registry, templateRoot, nil); err != nil {
				return err
			}

			components := make([]interface{}, 0, len(registry.Tags()))
			for _, tag := range registry.Tags() {
				c, _ := registry.Lookup(tag)
				components = append(components, map[string]interface{}{
					"name":     c.Name,
					"tag":      c.Tag,
					"template": c.Template,
				})
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, map[string]interface{}{"components": components})
		},
	}

	cmd.Flags().StringVar(&templateRoot, "template-root", "/static/mustache", "Root path of component templates")
	return cmd
}

func typeNames(types []entities.TypeName) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}
