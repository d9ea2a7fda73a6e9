package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"review_analyzer/internal/adapters/csvseed"
	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/adapters/reviewsapi"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/shared"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		baseURL string
		rps     int
		env     string
	)
	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Query and submit reviews against a running review analyzer",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = observability.NewLogger(env)
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "url", envOr("REVIEWS_URL", "http://localhost:8000"), "API base URL")
	root.PersistentFlags().IntVar(&rps, "rps", 10, "client-side request rate limit")
	root.PersistentFlags().StringVar(&env, "env", envOr("APP_ENV", "dev"), "log format: dev for console, anything else for JSON")

	client := func() (*reviewsapi.Client, error) { return reviewsapi.New(baseURL, rps) }

	root.AddCommand(queryCmd(client), submitCmd(client), importCmd(client))
	return root
}

func queryCmd(client func() (*reviewsapi.Client, error)) *cobra.Command {
	var f domain.FilterSpec
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List reviews ranked by sentiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := client()
			if err != nil {
				return err
			}
			out, err := cl.Query(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&f.Location, "location", "", `exact location, e.g. "Denver, Colorado"`)
	cmd.Flags().StringVar(&f.StartDate, "start-date", "", "inclusive start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.EndDate, "end-date", "", "inclusive end date (YYYY-MM-DD)")
	return cmd
}

func submitCmd(client func() (*reviewsapi.Client, error)) *cobra.Command {
	var location, body string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one review",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := client()
			if err != nil {
				return err
			}
			out, err := cl.Submit(cmd.Context(), location, body)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "review location (allow-listed)")
	cmd.Flags().StringVar(&body, "body", "", "review text")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

// importCmd submits every row of a seed-format CSV. Rows are validated
// locally first; the server stamps each review with its own time.
func importCmd(client func() (*reviewsapi.Client, error)) *cobra.Command {
	var (
		file    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Submit all reviews of a CSV file (Location, Timestamp, ReviewBody)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := client()
			if err != nil {
				return err
			}
			rs, err := csvseed.LoadFile(file, app.NewValidationGate(shared.AllowedLocations))
			if err != nil {
				return err
			}
			ok, failed := importAll(cmd.Context(), cl, rs, workers)
			log.Info().Int64("ok", ok).Int64("failed", failed).Msg("import completed")
			if failed > 0 {
				return fmt.Errorf("%d of %d reviews failed", failed, len(rs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "data/reviews.csv", "CSV file to import")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent submissions")
	return cmd
}

type submitter interface {
	Submit(ctx context.Context, location, body string) (domain.ScoredReview, error)
}

func importAll(ctx context.Context, cl submitter, rs []domain.Review, workers int) (ok, failed int64) {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for _, r := range rs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("import interrupted")
			break
		}
		wg.Add(1)
		go func(r domain.Review) {
			defer wg.Done()
			defer sem.Release(1)

			out, err := cl.Submit(ctx, r.Location, r.Body)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				ev := log.Warn()
				if errors.Is(err, domain.ErrInvalidInput) {
					ev = log.Error()
				}
				ev.Err(err).Str("location", r.Location).Msg("submit failed")
				return
			}
			atomic.AddInt64(&ok, 1)
			log.Debug().Str("id", out.ID).Float64("compound", out.Sentiment.Compound).Msg("submitted")
		}(r)
	}
	wg.Wait()
	return ok, failed
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
