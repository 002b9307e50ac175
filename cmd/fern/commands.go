package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/mapper"
	"github.com/Ramsey-B/fern/pkg/models"
)

type rootOptions struct {
	envFile        string
	dryRun         bool
	strictProducts bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fern",
		Short:         "Migrate the product catalog from the document store into the graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", "", "load environment variables from this file")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "write to an in-memory graph instead of the database")
	flags.BoolVar(&opts.strictProducts, "strict-products", false, "merge product masters on product_id instead of always creating them")

	root.AddCommand(
		newProductsCommand(opts),
		newSizeChartsCommand(opts),
		newMigrateCommand(opts),
		newPrioritiesCommand(opts),
		newServeCommand(opts),
	)
	return root
}

func newProductsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "Create ProductMaster and ProductTranslation nodes from product documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, true, func(a *app) error {
				summary, err := a.driver.RunProducts(cmd.Context())
				a.report(summary)
				return err
			})
		},
	}
}

func newSizeChartsCommand(opts *rootOptions) *cobra.Command {
	var combined bool

	cmd := &cobra.Command{
		Use:   "sizecharts",
		Short: "Merge SizeChart nodes from size chart documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			variant := mapper.VariantSizeChartOnly
			if combined {
				variant = mapper.VariantCombined
			}
			return withApp(cmd, opts, true, func(a *app) error {
				summary, err := a.driver.RunSizeCharts(cmd.Context(), variant)
				a.report(summary)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&combined, "combined", false, "also merge Size nodes and link them to products and size charts")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run the products pass and then the combined size chart pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, true, func(a *app) error {
				summaries, err := a.driver.RunCombined(cmd.Context())
				for _, summary := range summaries {
					a.report(summary)
				}
				return err
			})
		},
	}
}

func newPrioritiesCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "priorities",
		Short: "Link Type nodes to SizeCharts with priorities from a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open priority file: %w", err)
			}
			defer f.Close()

			return withApp(cmd, opts, false, func(a *app) error {
				summary, err := a.driver.RunPriorities(cmd.Context(), f)
				a.report(summary)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV with type_label_long,type_label_short,priority columns")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and pass triggers over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, true, func(a *app) error {
				return a.serve(cmd.Context())
			})
		},
	}
}

// withApp builds the app, runs fn and always tears the app down
func withApp(cmd *cobra.Command, opts *rootOptions, readsSource bool, fn func(a *app) error) error {
	a, err := newApp(cmd.Context(), opts, readsSource)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(a)
}

// passLabel is used in the final report line
func passLabel(summary *models.PassSummary) string {
	if summary.Aborted {
		return summary.Pass + " (aborted)"
	}
	return summary.Pass
}
