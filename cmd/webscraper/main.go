// CLAUDE:SUMMARY CLI entry point for webscraper: explore a URL, generate a scraper program from a report, list history, serve MCP on stdio.
// Command webscraper explores a page's structure and generates scrapers.
//
// Usage:
//
//	webscraper explore https://example.com/board       # write a structure report
//	webscraper generate reports/example_com_structure_20260101_120000.json
//	webscraper generate --latest example_com -f csv     # newest report for a domain
//	webscraper history --domain example_com
//	webscraper mcp                                      # MCP tools on stdio
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hyeji-simulacre/20TH-AI-WORK-SPACE/webscraper"
)

var version = "dev"

// app holds the persistent flags shared by every command.
type app struct {
	configPath string
	outputDir  string
	logLevel   string
	logJSON    bool
	asJSON     bool

	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "webscraper",
		Short:         "Explore a web page's structure and generate a scraper for it",
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(cmd.ErrOrStderr(), a.logLevel, a.logJSON)
			slog.SetDefault(a.logger)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to webscraper.yaml")
	pf.StringVar(&a.outputDir, "output-dir", "", "directory for reports and screenshots (overrides config and WEBSCRAPER_OUTPUT_DIR)")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.BoolVar(&a.logJSON, "log-json", false, "log as JSON on stderr")
	pf.BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(a.exploreCmd(), a.generateCmd(), a.historyCmd(), a.mcpCmd())
	return root
}

func newLogger(w io.Writer, level string, asJSON bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// service loads the configuration and builds a Service. tweak edits the
// config before defaults are applied.
func (a *app) service(tweak func(*webscraper.Config)) (*webscraper.Service, error) {
	var (
		cfg *webscraper.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = webscraper.LoadConfigFile(a.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = webscraper.DefaultConfig()
	}
	if a.outputDir != "" {
		cfg.Output.Dir = a.outputDir
	}
	if tweak != nil {
		tweak(cfg)
	}
	return webscraper.New(cfg, a.logger)
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) exploreCmd() *cobra.Command {
	var (
		mode         string
		skipRobots   bool
		showBrowser  bool
		remote       string
		noScreenshot bool
	)
	cmd := &cobra.Command{
		Use:   "explore URL",
		Short: "Analyze a page and write a structure report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(func(cfg *webscraper.Config) {
				if showBrowser {
					f := false
					cfg.Browser.Headless = &f
				}
				if remote != "" {
					cfg.Browser.Remote = remote
				}
				if noScreenshot {
					f := false
					cfg.Browser.Screenshot = &f
				}
			})
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Explore(cmd.Context(), webscraper.ExploreRequest{
				URL:       args[0],
				Mode:      mode,
				Override:  skipRobots,
				Confirmer: webscraper.Prompt{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()},
			})
			if res != nil {
				if a.asJSON {
					if perr := a.printJSON(cmd.OutOrStdout(), res); perr != nil {
						return perr
					}
				} else {
					printExplore(cmd.OutOrStdout(), res)
				}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&mode, "mode", "m", "auto", "tier: auto, static, feed (rss), rendered (playwright)")
	f.BoolVar(&skipRobots, "skip-robots-prompt", false, "proceed without asking when robots.txt disallows the path")
	f.BoolVar(&showBrowser, "show-browser", false, "run Chrome with a visible window")
	f.StringVar(&remote, "browser-remote", "", "DevTools WebSocket URL of a running Chrome")
	f.BoolVar(&noScreenshot, "no-screenshot", false, "skip the rendered-tier screenshot")
	return cmd
}

func printExplore(w io.Writer, res *webscraper.ExploreResult) {
	r := res.Report
	fmt.Fprintf(w, "report:  %s\n", res.ReportPath)
	fmt.Fprintf(w, "status:  %s\n", r.Status)
	if r.AnalysisMethod != "" {
		fmt.Fprintf(w, "method:  %s\n", r.AnalysisMethod)
		fmt.Fprintf(w, "pattern: %s\n", res.Pattern)
	}
	for _, t := range r.Tiers {
		line := fmt.Sprintf("  tier %-12s %s", t.Tier, t.Outcome)
		if t.Error != "" {
			line += ": " + t.Error
		}
		fmt.Fprintln(w, line)
	}
	for _, rec := range r.RecommendedSelectors {
		fmt.Fprintf(w, "  %-11s %s  (%s)\n", rec.Type, rec.Selector, rec.Rationale)
	}
	for _, adv := range r.Advisories {
		fmt.Fprintf(w, "  note: %s\n", adv)
	}
	if r.AnalysisMethod != "" {
		fmt.Fprintf(w, "\nnext: webscraper generate %s\n", res.ReportPath)
	}
}

func (a *app) generateCmd() *cobra.Command {
	var req webscraper.GenerateRequest
	cmd := &cobra.Command{
		Use:   "generate [REPORT]",
		Short: "Generate a Go scraper program from a structure report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.ReportPath = args[0]
			}
			if req.ReportPath == "" && req.Latest == "" {
				return fmt.Errorf("pass a report path or --latest DOMAIN")
			}
			svc, err := a.service(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "program: %s (%s, %s)\n", res.Path, res.Method, res.Pattern)
			fmt.Fprintf(out, "run:     go run %s\n", res.Path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Latest, "latest", "", "use the newest usable report for a domain slug (example_com)")
	f.StringVarP(&req.Format, "format", "f", "", "output format of the program: json, csv, md, all")
	f.StringVarP(&req.OutputPath, "output", "o", "", "where to write main.go")
	f.StringVar(&req.DataDir, "data-dir", "", "where the program writes collected data")
	f.IntVarP(&req.MaxItems, "max-items", "n", 0, "item cap baked into the program (default 50, 30 for detail pages)")
	f.StringVar(&req.Pattern, "pattern", "", "force an extraction pattern")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var (
		domain string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List catalogued exploration runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			runs, err := svc.History(cmd.Context(), domain, limit)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), runs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CAPTURED\tDOMAIN\tSTATUS\tMETHOD\tPATTERN\tREPORT")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.CapturedAt.Local().Format("2006-01-02 15:04"), r.Domain, r.Status, r.Method, r.Pattern, r.ReportPath)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "domain slug filter (example_com)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs")
	return cmd
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the webscraper tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			srv := mcp.NewServer(&mcp.Implementation{Name: "webscraper", Version: version}, nil)
			svc.RegisterMCP(srv)
			a.logger.Info("webscraper: mcp serving on stdio")
			if err := srv.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil && cmd.Context().Err() == nil {
				return fmt.Errorf("mcp: %w", err)
			}
			return nil
		},
	}
}
