// Package report renders evaluation results as Markdown. It only
// formats data the engine has already computed.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rankeval/rank-eval/internal/eval"
)

// Markdown renders a full evaluation report: the comparison summary,
// per-approach statistics with per-query rows, and (with more than one
// approach) the best approach per query.
func Markdown(store *eval.Store) (string, error) {
	comparison, err := eval.Compare(store)
	if err != nil {
		return "", err
	}

	names := store.Names()
	metrics := sortedMetricNames(comparison)

	var b strings.Builder
	b.WriteString("# Search Evaluation Report\n")
	b.WriteString("\n## Comparison Summary\n\n")

	b.WriteString("| Metric | " + strings.Join(names, " | ") + " | Best Approach |\n")
	b.WriteString("|--------|" + strings.Repeat("---------|", len(names)) + "-------------|\n")
	for _, metric := range metrics {
		mc := comparison.Metrics[metric]
		row := make([]string, 0, len(names))
		for _, name := range names {
			row = append(row, fmt.Sprintf("%.4f", mc.Values[name]))
		}
		b.WriteString(fmt.Sprintf("| %s | %s | **%s** |\n", metric, strings.Join(row, " | "), mc.BestApproach))
	}

	for _, metric := range metrics {
		mc := comparison.Metrics[metric]
		if mc.SignificantGap {
			b.WriteString(fmt.Sprintf("\nPerformance gap of %.1f%% between best and worst approach on %s.\n",
				mc.GapPercent, metric))
		}
	}

	b.WriteString("\n## Detailed Results\n")
	for _, name := range names {
		result, ok := store.Get(name)
		if !ok {
			continue
		}
		writeApproach(&b, name, result)
	}

	if len(names) > 1 {
		writeBestPerQuery(&b, store, metrics)
	}

	return b.String(), nil
}

func writeApproach(b *strings.Builder, name string, result *eval.ApproachResult) {
	b.WriteString(fmt.Sprintf("\n### %s\n\n", name))

	b.WriteString("| Metric | Mean | Median | Min | Max | StdDev |\n")
	b.WriteString("|--------|------|--------|-----|-----|--------|\n")

	metricNames := make([]string, 0, len(result.Metrics))
	for metric := range result.Metrics {
		metricNames = append(metricNames, metric)
	}
	sort.Strings(metricNames)

	for _, metric := range metricNames {
		s := result.Metrics[metric]
		b.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
			metric, s.Mean, s.Median, s.Min, s.Max, s.StdDev))
	}

	b.WriteString("\n#### Per-Query Results\n\n")
	b.WriteString("| Query | NDCG | MAP | MRR | Relevant Hits |\n")
	b.WriteString("|-------|------|-----|-----|---------------|\n")

	for _, rec := range result.DetailedResults {
		relevant := 0
		for _, hs := range rec.HitScores {
			if hs.Relevant {
				relevant++
			}
		}
		b.WriteString(fmt.Sprintf("| %q | %.4f | %.4f | %.4f | %d/%d |\n",
			truncate(rec.Query.Text, 30),
			rec.Metrics["ndcg"], rec.Metrics["map"], rec.Metrics["mrr"],
			relevant, len(rec.HitScores)))
	}
}

func writeBestPerQuery(b *strings.Builder, store *eval.Store, metrics []string) {
	b.WriteString("\n## Best Approach Per Query\n\n")

	best := eval.BestPerQuery(store)

	queries := make([]string, 0, len(best))
	for query := range best {
		queries = append(queries, query)
	}
	sort.Strings(queries)

	header := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		header = append(header, "Best for "+strings.ToUpper(metric))
	}
	b.WriteString("| Query | " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|-------|" + strings.Repeat("--------------|", len(metrics)) + "\n")

	for _, query := range queries {
		row := make([]string, 0, len(metrics))
		for _, metric := range metrics {
			if qb, ok := best[query][metric]; ok {
				row = append(row, fmt.Sprintf("**%s** (%.4f)", qb.Approach, qb.Value))
			} else {
				row = append(row, "-")
			}
		}
		b.WriteString(fmt.Sprintf("| %q | %s |\n", truncate(query, 30), strings.Join(row, " | ")))
	}
}

func sortedMetricNames(comparison *eval.Comparison) []string {
	names := make([]string, 0, len(comparison.Metrics))
	for name := range comparison.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
