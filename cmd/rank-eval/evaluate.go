package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rankeval/rank-eval/internal/bus"
	"github.com/rankeval/rank-eval/internal/config"
	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/fixtures"
	"github.com/rankeval/rank-eval/internal/judge"
	"github.com/rankeval/rank-eval/internal/pkg/logger"
	"github.com/rankeval/rank-eval/internal/report"
	"github.com/rankeval/rank-eval/internal/results"
	"github.com/rankeval/rank-eval/internal/searcher"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate search approaches over a query set",
		Long: `Evaluate one or more search approaches against the same query set.

Each --approach flag names an approach and the fixture file holding its
hits per query (name=hits.json). A Qdrant-backed approach can be added
with --qdrant-collection plus --vectors for precomputed query vectors.

Results are compared across approaches and can be saved as a JSON
snapshot and rendered as a Markdown report.`,
		RunE: runEvaluate,
	}

	cmd.Flags().StringP("queries", "q", "", "queries fixture file (json or yaml)")
	cmd.Flags().StringArrayP("approach", "a", nil, "approach as name=hits-file (repeatable)")
	cmd.Flags().String("judge", "local", "judge backend (local, http)")
	cmd.Flags().Bool("parallel", false, "evaluate queries with a bounded worker pool")
	cmd.Flags().Int("workers", 0, "max parallel workers (overrides config)")
	cmd.Flags().Duration("delay", -1, "per-worker pacing gap between judge calls")
	cmd.Flags().Bool("no-progress", false, "suppress per-query progress logging")
	cmd.Flags().StringP("output", "o", "", "write result snapshot to this JSON file")
	cmd.Flags().String("report", "", "write Markdown report to this file")
	cmd.Flags().String("run", "", "store the snapshot in Redis under this run name")
	cmd.Flags().String("qdrant-collection", "", "add a Qdrant vector-search approach over this collection")
	cmd.Flags().String("vectors", "", "precomputed query vectors file for the Qdrant approach")

	_ = cmd.MarkFlagRequired("queries")

	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	queriesPath, _ := cmd.Flags().GetString("queries")
	queries, err := fixtures.LoadQueries(queriesPath)
	if err != nil {
		return fmt.Errorf("loading queries: %w", err)
	}

	j, err := buildJudge(cmd, cfg)
	if err != nil {
		return err
	}

	b, err := bus.New(bus.Config{
		Type:               cfg.Bus.Type,
		KafkaBrokers:       cfg.Bus.KafkaBrokers,
		KafkaConsumerGroup: cfg.Bus.ConsumerGroup,
	})
	if err != nil {
		return fmt.Errorf("creating event bus: %w", err)
	}
	if b != nil {
		defer b.Close()
	}

	evaluator := eval.New(j, log).WithBus(b)
	opts := buildOptions(cmd, cfg)

	approaches, _ := cmd.Flags().GetStringArray("approach")
	for _, arg := range approaches {
		name, hitsPath, ok := strings.Cut(arg, "=")
		if !ok || name == "" || hitsPath == "" {
			return fmt.Errorf("invalid --approach %q, want name=hits-file", arg)
		}
		hits, err := fixtures.LoadHits(hitsPath)
		if err != nil {
			return fmt.Errorf("loading hits for %s: %w", name, err)
		}
		if _, err := evaluator.EvaluateApproach(ctx, name, searcher.Fixture(hits, log), queries, opts); err != nil {
			return fmt.Errorf("evaluating %s: %w", name, err)
		}
	}

	if collection, _ := cmd.Flags().GetString("qdrant-collection"); collection != "" {
		if err := evaluateQdrant(ctx, cmd, cfg, evaluator, collection, queries, opts); err != nil {
			return err
		}
	}

	if evaluator.Store().Len() == 0 {
		return fmt.Errorf("no approaches given: pass --approach or --qdrant-collection")
	}

	return writeOutputs(ctx, cmd, cfg, evaluator.Store())
}

func evaluateQdrant(ctx context.Context, cmd *cobra.Command, cfg *config.Config, evaluator *eval.Evaluator, collection string, queries []eval.Query, opts eval.Options) error {
	vectorsPath, _ := cmd.Flags().GetString("vectors")
	if vectorsPath == "" {
		return fmt.Errorf("--qdrant-collection requires --vectors")
	}
	vectors, err := fixtures.LoadQueryVectors(vectorsPath)
	if err != nil {
		return fmt.Errorf("loading query vectors: %w", err)
	}

	q, err := searcher.NewQdrant(searcher.QdrantConfig{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: collection,
		TopK:       cfg.Qdrant.TopK,
	}, vectors)
	if err != nil {
		return fmt.Errorf("creating qdrant searcher: %w", err)
	}
	defer q.Close()

	if _, err := evaluator.EvaluateApproach(ctx, "qdrant:"+collection, q.SearchFunc(), queries, opts); err != nil {
		return fmt.Errorf("evaluating qdrant approach: %w", err)
	}
	return nil
}

func writeOutputs(ctx context.Context, cmd *cobra.Command, cfg *config.Config, store *eval.Store) error {
	snapshot := results.FromStore(store)

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := results.SaveFile(output, snapshot); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
	}

	if run, _ := cmd.Flags().GetString("run"); run != "" {
		if cfg.Redis.URL == "" {
			return fmt.Errorf("--run requires redis url in config")
		}
		storage, err := results.NewRedisStorage(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer storage.Close()
		if err := storage.Save(ctx, run, snapshot); err != nil {
			return fmt.Errorf("storing run %s: %w", run, err)
		}
	}

	md, err := report.Markdown(store)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := os.WriteFile(reportPath, []byte(md), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), md)
	return nil
}

func buildJudge(cmd *cobra.Command, cfg *config.Config) (eval.Judge, error) {
	backend, _ := cmd.Flags().GetString("judge")
	switch backend {
	case "local":
		return judge.NewLocal(), nil
	case "http":
		return judge.NewClient(judge.Config{
			Endpoint: cfg.Judge.Endpoint,
			APIKey:   cfg.Judge.APIKey,
			Fields:   cfg.Judge.Fields,
			Debug:    cfg.Judge.Debug,
			Timeout:  cfg.JudgeTimeout(),
		})
	default:
		return nil, fmt.Errorf("unknown judge backend %q", backend)
	}
}

func buildOptions(cmd *cobra.Command, cfg *config.Config) eval.Options {
	opts := eval.Options{
		ShowProgress: cfg.Runner.ShowProgress,
		Parallel:     cfg.Runner.Parallel,
		MaxWorkers:   cfg.Runner.MaxWorkers,
		RequestDelay: cfg.RequestDelay(),
	}

	if cmd.Flags().Changed("parallel") {
		opts.Parallel, _ = cmd.Flags().GetBool("parallel")
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		opts.MaxWorkers = workers
	}
	if delay, _ := cmd.Flags().GetDuration("delay"); delay >= 0 {
		opts.RequestDelay = delay
	}
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); noProgress {
		opts.ShowProgress = false
	}

	return opts
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}
