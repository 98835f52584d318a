package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/report"
	"github.com/rankeval/rank-eval/internal/results"
)

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare approaches from a saved snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore(cmd)
			if err != nil {
				return err
			}

			comparison, err := eval.Compare(store)
			if err != nil {
				return err
			}

			metrics := make([]string, 0, len(comparison.Metrics))
			for metric := range comparison.Metrics {
				metrics = append(metrics, metric)
			}
			sort.Strings(metrics)

			out := cmd.OutOrStdout()
			for _, metric := range metrics {
				mc := comparison.Metrics[metric]
				fmt.Fprintf(out, "%s: best %s", metric, mc.BestApproach)
				if mc.SignificantGap {
					fmt.Fprintf(out, " (gap %.1f%%)", mc.GapPercent)
				}
				fmt.Fprintln(out)
				for _, name := range store.Names() {
					fmt.Fprintf(out, "  %-20s %.4f\n", name, mc.Values[name])
				}
			}
			return nil
		},
	}

	addSnapshotFlags(cmd)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a Markdown report from a saved snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore(cmd)
			if err != nil {
				return err
			}

			md, err := report.Markdown(store)
			if err != nil {
				return err
			}

			if output, _ := cmd.Flags().GetString("output"); output != "" {
				return os.WriteFile(output, []byte(md), 0o644)
			}
			fmt.Fprintln(cmd.OutOrStdout(), md)
			return nil
		},
	}

	addSnapshotFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "write the report to this file")
	return cmd
}

func addSnapshotFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("snapshot", "s", "", "snapshot JSON file")
	cmd.Flags().String("run", "", "run name stored in Redis")
}

// loadStore rebuilds a result store from either a snapshot file or a
// Redis-stored run.
func loadStore(cmd *cobra.Command) (*eval.Store, error) {
	path, _ := cmd.Flags().GetString("snapshot")
	run, _ := cmd.Flags().GetString("run")

	switch {
	case path != "" && run != "":
		return nil, fmt.Errorf("pass either --snapshot or --run, not both")
	case path != "":
		snapshot, err := results.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading snapshot: %w", err)
		}
		return results.ToStore(snapshot), nil
	case run != "":
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		if cfg.Redis.URL == "" {
			return nil, fmt.Errorf("--run requires redis url in config")
		}
		storage, err := results.NewRedisStorage(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		defer storage.Close()
		snapshot, err := storage.Load(cmd.Context(), run)
		if err != nil {
			return nil, fmt.Errorf("loading run %s: %w", run, err)
		}
		return results.ToStore(snapshot), nil
	default:
		return nil, fmt.Errorf("pass --snapshot or --run")
	}
}
