package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/content-collections/internal/cache"
	"github.com/content-collections/internal/content"
	"github.com/content-collections/internal/events"
	"github.com/content-collections/internal/metrics"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/service"
	"github.com/content-collections/internal/validation"
)

func newCheckCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Validate every document of the content collections",
		Long: `check loads every markdown document under dir (default: content.root),
validates its front-matter against the schema of its collection and prints a
report grouped by collection. The exit status is 1 when any document fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			checker, closeFn, err := a.newChecker(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := checker.CheckDir(ctx, a.contentRoot(args))
			if err != nil {
				return err
			}
			if err := printReport(a.out, report, asJSON); err != nil {
				return err
			}
			if !report.OK() {
				return ErrCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// newChecker wires a check service from the loaded configuration. The returned
// function releases the cache and the event publisher.
func (a *app) newChecker(ctx context.Context) (service.CheckService, func(), error) {
	m := metrics.NewMetrics(prometheus.NewRegistry())

	resultCache, err := cache.New(ctx, a.cfg.Cache, a.log)
	if err != nil {
		return nil, nil, err
	}
	publisher := events.New(&a.cfg.Events, m, a.log)

	deps := service.Deps{
		Validator: validation.NewValidator(),
		Cache:     resultCache,
		Publisher: publisher,
		Metrics:   m,
	}
	loader := content.NewLoader(a.log, a.cfg.Content.MaxDocumentSize)
	checker := service.NewCheckService(loader, deps, a.cfg.Content.Concurrency, a.log)

	closeFn := func() {
		if err := publisher.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close event publisher")
		}
		if err := resultCache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close validation cache")
		}
	}
	return checker, closeFn, nil
}

func printReport(w io.Writer, report *service.CheckReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	title := cases.Title(language.English)
	byKind := make(map[models.Kind][]service.DocumentResult)
	for _, res := range report.Results {
		byKind[res.Kind] = append(byKind[res.Kind], res)
	}

	for _, sum := range report.Collections {
		if sum.Total == 0 {
			continue
		}
		name := string(sum.Kind)
		if name == "" {
			name = "unassigned"
		}
		fmt.Fprintf(w, "%s (%d documents, %d invalid)\n", title.String(name), sum.Total, sum.Invalid)

		for _, res := range byKind[sum.Kind] {
			mark := "ok  "
			if !res.Valid {
				mark = "FAIL"
			}
			suffix := ""
			if res.Cached {
				suffix = " (cached)"
			}
			fmt.Fprintf(w, "  %s %s%s\n", mark, res.Path, suffix)

			if res.Error != "" {
				fmt.Fprintf(w, "       %s\n", res.Error)
			}
			for _, fe := range res.Errors {
				fmt.Fprintf(w, "       %s: %s [%s]\n", fe.Field, fe.Message, fe.Code)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d documents checked, %d valid, %d invalid", report.Total, report.Valid, report.Invalid)
	if report.CacheHits > 0 {
		fmt.Fprintf(w, ", %d from cache", report.CacheHits)
	}
	fmt.Fprintf(w, " in %dms\n", report.DurationMs)
	return nil
}
