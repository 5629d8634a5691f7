package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/compscout/internal/api"
	"github.com/IshaanNene/compscout/internal/config"
	"github.com/IshaanNene/compscout/internal/storage"
	"github.com/IshaanNene/compscout/pkg/compscout"
)

func addMarketFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "marketplace domain, e.g. com, co.uk, de")
	cmd.Flags().StringVarP(&geoLocation, "geo", "g", "", "delivery location (zip code or country)")
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [id]",
		Short: "Fetch a product and store it as a primary record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.client.Scrape(cmd.Context(), args[0], domain, geoLocation)
			if err != nil {
				return err
			}
			renderProduct(cmd.OutOrStdout(), p)
			return nil
		},
	}
	addMarketFlags(cmd)
	return cmd
}

// discoverCmd creates the "discover" subcommand.
func discoverCmd() *cobra.Command {
	var pages, limit int
	cmd := &cobra.Command{
		Use:   "discover [parent-id]",
		Short: "Search for competitors of a stored product",
		Long:  "Search the parent's categories, fetch details of the candidates and store them as competitors.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Now()
			result, err := a.client.Discover(cmd.Context(), compscout.DiscoverRequest{
				ParentID:    args[0],
				Domain:      domain,
				GeoLocation: geoLocation,
				Pages:       pages,
				Limit:       limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Competitors) == 0 {
				fmt.Fprintln(out, "No competitors found.")
				return nil
			}
			renderProducts(out, result.Competitors)
			renderSummary(out, a.client.Summarize(result.Competitors))
			fmt.Fprintf(out, "\nDiscovered %d competitors in %s (%d candidates, %d failed, %d search failures)\n",
				len(result.Competitors), time.Since(start).Round(time.Millisecond),
				len(result.Candidates), result.Failed, result.SearchFailures)
			return nil
		},
	}
	addMarketFlags(cmd)
	cmd.Flags().IntVarP(&pages, "pages", "p", 0, "search result pages per category (0 = config default)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum competitors to store (0 = config default)")
	return cmd
}

// competitorsCmd creates the "competitors" subcommand.
func competitorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "competitors [parent-id]",
		Short: "List the stored competitors of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			competitors, err := a.client.Competitors(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(competitors) == 0 {
				fmt.Fprintln(out, "No competitors stored. Run: compscout discover "+args[0])
				return nil
			}
			renderProducts(out, competitors)
			renderSummary(out, a.client.Summarize(competitors))
			return nil
		},
	}
}

// productsCmd creates the "products" subcommand.
func productsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List stored primary products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			products, err := a.client.Products(cmd.Context())
			if err != nil {
				return err
			}
			if len(products) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products stored.")
				return nil
			}
			renderProducts(cmd.OutOrStdout(), products)
			return nil
		},
	}
}

// analyzeCmd creates the "analyze" subcommand.
func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [id]",
		Short: "Run an LLM competitive analysis of a stored product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			analysis, err := a.client.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), analysis.Render())
			return nil
		},
	}
}

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export [parent-id]",
		Short: "Export the stored competitors of a product to CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			format = strings.ToLower(format)
			if output == "" {
				output = fmt.Sprintf("competitors_%s.%s", args[0], format)
			}
			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			w := bufio.NewWriter(f)
			n, err := a.client.Export(cmd.Context(), w, args[0], format)
			if err == nil {
				err = w.Flush()
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d competitors to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", storage.FormatCSV, "export format: csv, xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default competitors_<id>.<format>)")
	return cmd
}

// clearCmd creates the "clear" subcommand.
func clearCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [parent-id]",
		Short: "Remove the stored competitors of a product, or everything with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				if err := a.client.ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Store cleared.")
				return nil
			}
			n, err := a.client.ClearCompetitors(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d competitors of %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove every stored record")
	return cmd
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			if port > 0 {
				a.cfg.Server.Port = port
			}

			var analyzer api.Analyzer
			if an := a.client.Analyzer(); an != nil {
				analyzer = an
			}
			srv, err := api.NewServer(a.cfg, a.client.Service(), analyzer, a.metrics, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard on http://localhost%s\n", srv.Addr())
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (0 = server.port)")
	return cmd
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "compscout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			renderConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}
