package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/khanhnv2901/sitesniffer/internal/application/report"
	consts "github.com/khanhnv2901/sitesniffer/internal/shared/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type inspectOptions struct {
	Facets     []string
	JSON       bool
	OutputFile string
}

var inspectOpts inspectOptions

var inspectCmd = &cobra.Command{
	Use:   "inspect <url>...",
	Short: "Inspect one or more websites",
	Long: `Inspect one or more websites and print a report per URL.

By default the address, registration, status code, certificate, load time,
meta description, keywords and links are collected. Select facets with
--facet (repeatable or comma separated, "all" for every facet).

Examples:
  sitesniffer inspect example.com
  sitesniffer inspect https://example.com --facet ssl_info,status_code
  sitesniffer inspect a.example b.example --concurrency 8 --progress --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		facets, err := report.ParseFacets(inspectOpts.Facets)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		results := runInspections(ctx, cmd.ErrOrStderr(), args, facets)

		out := cmd.OutOrStdout()
		if inspectOpts.OutputFile != "" {
			if err := writeResultsFile(inspectOpts.OutputFile, results); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Results written to %s\n", colorSuccess("✓"), inspectOpts.OutputFile)
		} else if inspectOpts.JSON {
			if err := writeResultsJSON(out, results); err != nil {
				return err
			}
		} else {
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				writeResultText(out, r)
			}
		}

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			if len(results) == 1 {
				return results[0].Err
			}
			return &BatchError{Failed: failed, Total: len(results)}
		}
		return nil
	},
}

func init() {
	flags := inspectCmd.Flags()
	flags.StringSliceVarP(&inspectOpts.Facets, "facet", "f", nil, "Facets to collect (see 'sitesniffer info'); 'all' for every facet")
	flags.BoolVar(&inspectOpts.JSON, "json", false, "Print reports as JSON")
	flags.StringVarP(&inspectOpts.OutputFile, "output", "o", "", "Write JSON reports to this file instead of stdout")
	flags.IntVar(&cliConfig.Batch.Concurrency, "concurrency", cliConfig.Batch.Concurrency, "Maximum concurrent inspections")
	flags.IntVar(&cliConfig.Batch.RateLimit, "rate-limit", cliConfig.Batch.RateLimit, "Inspections started per second (0 = unlimited)")
	flags.BoolVar(&cliConfig.Batch.Progress, "progress", cliConfig.Batch.Progress, "Show progress while inspecting several URLs")
}

// runInspections inspects urls with the configured batch settings. Progress
// goes to progressOut when enabled and more than one URL is given.
func runInspections(ctx context.Context, progressOut io.Writer, urls []string, facets []report.Facet) []report.Result {
	orchestrator := report.NewOrchestrator(cliConfig.inspectorConfig(logger), 0)
	runner := &report.Runner{
		Concurrency: cliConfig.Batch.Concurrency,
		RateLimit:   cliConfig.Batch.RateLimit,
	}

	var progress *progressPrinter
	if cliConfig.Batch.Progress && len(urls) > 1 {
		progress = newProgressPrinter(progressOut, len(urls), "inspect")
		progress.Start()
	}

	start := time.Now()
	results := runner.Run(ctx, orchestrator, urls, facets, func(r report.Result) {
		if progress == nil {
			return
		}
		seconds := 0.0
		if r.Report != nil {
			seconds = r.Report.Duration / 1000
		}
		progress.Increment(r.Err == nil && len(r.Report.Errors) == 0, seconds)
	})
	if progress != nil {
		progress.Stop()
	}

	logger.Info("inspection batch finished",
		zap.Int("urls", len(urls)),
		zap.Int("facets", len(facets)),
		zap.Duration("duration", time.Since(start)),
	)
	return results
}

// writeResultsJSON prints a single report as an object and a batch as an
// array of results.
func writeResultsJSON(w io.Writer, results []report.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(results) == 1 && results[0].Report != nil {
		return enc.Encode(results[0].Report)
	}
	return enc.Encode(results)
}

func writeResultsFile(path string, results []report.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeResultsJSON(f, results); err != nil {
		f.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	return f.Close()
}

func writeResultText(w io.Writer, r report.Result) {
	if r.Report == nil {
		fmt.Fprintf(w, "%s %s\n", colorHeading(r.URL), formatStatusWithColor("error"))
		fmt.Fprintf(w, "  %v\n", r.Err)
		if hint := kindHint(r.Err); hint != "" {
			fmt.Fprintf(w, "  %s %s\n", colorWarn("hint:"), hint)
		}
		return
	}
	writeReportText(w, r.Report)
}

func writeReportText(w io.Writer, rep *report.Report) {
	line := func(label, value string) {
		fmt.Fprintf(w, "  %-20s %s\n", label+":", value)
	}

	fmt.Fprintln(w, colorHeading(rep.URL))
	line("Protocol", rep.Protocol)
	line("Hostname", rep.Hostname)
	line("Path", rep.Path)

	for _, f := range rep.Facets {
		if err := rep.Err(f); err != nil {
			line(facetLabel(f), fmt.Sprintf("%s %v", formatStatusWithColor("error"), err))
			continue
		}
		switch f {
		case report.FacetIPAddress:
			line("IP address", rep.IPAddress)
		case report.FacetDNS:
			if rep.DNS != nil {
				line("Addresses", strings.Join(rep.DNS.Addresses, ", "))
				if rep.DNS.CNAME != "" {
					line("CNAME", rep.DNS.CNAME)
				}
				for _, mx := range rep.DNS.MX {
					line("MX", fmt.Sprintf("%s (%d)", mx.Host, mx.Priority))
				}
				if len(rep.DNS.NameServers) > 0 {
					line("NS", strings.Join(rep.DNS.NameServers, ", "))
				}
			}
		case report.FacetDomainInfo:
			writeDomainInfo(line, rep)
		case report.FacetStatusCode:
			line("Status code", formatHTTPStatus(rep.StatusCode))
		case report.FacetSSLInfo:
			if rep.SSL != nil {
				now := time.Now()
				expiry := rep.SSL.NotAfter.Format(time.DateOnly)
				days := rep.SSL.DaysRemaining(now)
				switch {
				case days < 0:
					expiry += " " + colorError("(expired)")
				case rep.SSL.ExpiresSoon(now):
					expiry += " " + colorWarn(fmt.Sprintf("(%d days left)", days))
				default:
					expiry += " " + colorSuccess(fmt.Sprintf("(%d days left)", days))
				}
				line("Certificate subject", rep.SSL.Subject)
				line("Certificate issuer", rep.SSL.Issuer)
				line("Certificate expires", expiry)
				if rep.SSL.TLSVersion != "" {
					line("TLS version", rep.SSL.TLSVersion)
				}
			}
		case report.FacetLoadTime:
			if rep.LoadTime != nil {
				line("Load time", fmt.Sprintf("%.3fs", *rep.LoadTime))
			}
		case report.FacetFullLoadTime:
			if rep.FullLoadTime != nil {
				line("Full load time", fmt.Sprintf("%.3fs", *rep.FullLoadTime))
			}
		case report.FacetTitle:
			if rep.Title != nil {
				line("Title", *rep.Title)
			}
		case report.FacetMetaDescription:
			if rep.HasMetaDescription != nil && *rep.HasMetaDescription && rep.MetaDescription != nil {
				line("Meta description", *rep.MetaDescription)
			} else {
				line("Meta description", colorWarn("missing"))
			}
		case report.FacetKeywords:
			if len(rep.Keywords) == 0 {
				line("Keywords", colorWarn("none"))
			} else {
				line("Keywords", strings.Join(rep.Keywords, ", "))
			}
		case report.FacetLinks:
			line("Links", fmt.Sprintf("%d", len(rep.Links)))
			for _, link := range rep.Links {
				fmt.Fprintf(w, "    - %s\n", link)
			}
		case report.FacetMobileFriendly:
			writeBool(line, "Mobile friendly", rep.MobileFriendly)
		case report.FacetResponsive:
			writeBool(line, "Responsive", rep.Responsive)
		case report.FacetMobileReachable:
			writeBool(line, "Mobile reachable", rep.MobileReachable)
		case report.FacetCookies:
			writeBool(line, "Sets cookies", rep.Cookies)
		case report.FacetAnalytics:
			writeBool(line, "Google Analytics", rep.GoogleAnalytics)
		}
	}
	line("Checked in", fmt.Sprintf("%.0fms", rep.Duration))
}

func writeDomainInfo(line func(label, value string), rep *report.Report) {
	info := rep.DomainInfo
	if info == nil || info.IsEmpty() {
		line("Domain info", colorWarn("unavailable"))
		return
	}
	if info.DomainName != "" {
		line("Domain", info.DomainName)
	}
	if info.Registrar != "" {
		line("Registrar", info.Registrar)
	}
	if info.CreationDate != nil {
		line("Registered", info.CreationDate.Format(time.DateOnly))
	}
	if info.ExpirationDate != nil {
		line("Registration expires", info.ExpirationDate.Format(time.DateOnly))
	}
	if len(info.NameServers) > 0 {
		line("Name servers", strings.Join(info.NameServers, ", "))
	}
}

func writeBool(line func(label, value string), label string, v *bool) {
	if v == nil {
		return
	}
	line(label, formatBool(*v))
}

func facetLabel(f report.Facet) string {
	s := strings.ReplaceAll(string(f), "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
