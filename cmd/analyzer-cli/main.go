package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/birads-report-server/internal/casebase"
	"github.com/birads-report-server/internal/config"
	"github.com/birads-report-server/internal/domain"
	"github.com/birads-report-server/internal/evaluation"
	"github.com/birads-report-server/internal/knowledge"
	"github.com/birads-report-server/internal/logging"
	"github.com/birads-report-server/internal/service"
	"github.com/birads-report-server/pkg/external"
)

const (
	exitProcessing = 1
	exitUsage      = 2
)

// analyzer-cli analyzes a single mammography report from a file or stdin
// and prints the analysis result as JSON. It can additionally rank similar
// cases from the case base, or run the evaluation harness over a labeled
// dataset instead.
func main() {
	input := flag.String("input", "", "report file to analyze (default: stdin)")
	pretty := flag.Bool("pretty", false, "indent the JSON output")
	similar := flag.Int("similar", 0, "include the N most similar cases")
	eval := flag.String("eval", "", "run the evaluation harness over a labeled dataset file")
	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(exitUsage)
	}
	if *eval != "" && (*input != "" || *similar > 0) {
		fmt.Fprintln(os.Stderr, "-eval cannot be combined with -input or -similar")
		os.Exit(exitUsage)
	}
	if *similar < 0 {
		fmt.Fprintln(os.Stderr, "-similar must be non-negative")
		os.Exit(exitUsage)
	}

	cfg := config.LoadLiteConfig()
	logger := logging.NewStderr(cfg.LogLevel, cfg.LogFormat)

	analyzer := service.NewAnalyzer(knowledge.NewBase(), logger, service.AnalyzerOptions{
		MaxReportBytes: cfg.MaxReportBytes,
		Engine: service.EngineOptions{
			AggregateJustifications: cfg.AggregateJustifications,
		},
	})

	if *eval != "" {
		runEvaluation(analyzer, *eval, *pretty)
		return
	}

	text, err := readReport(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading report: %v\n", err)
		os.Exit(exitProcessing)
	}

	result, err := analyzer.Process(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(exitProcessing)
	}

	output := map[string]interface{}{
		"sections":        result.Sections,
		"entities":        result.Entities,
		"recommendations": result.Recommendations,
	}

	if *similar > 0 {
		matches, err := findSimilar(context.Background(), cfg, logger, result, *similar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "similarity search failed: %v\n", err)
			os.Exit(exitProcessing)
		}
		output["similar_cases"] = matches
	}

	printJSON(output, *pretty)
}

func readReport(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// findSimilar opens the case base on demand so plain analysis runs touch
// no files.
func findSimilar(ctx context.Context, cfg *config.LiteConfig, logger *logrus.Logger, result *domain.AnalysisResult, topN int) ([]service.SimilarCase, error) {
	store, err := casebase.NewSQLiteStore(cfg.CaseBasePath)
	if err != nil {
		return nil, fmt.Errorf("opening case base: %w", err)
	}
	defer store.Close()

	if cfg.SeedCaseBase {
		if _, err := casebase.SeedIfEmpty(ctx, store); err != nil {
			return nil, fmt.Errorf("seeding case base: %w", err)
		}
	}

	matcher, err := service.NewMatcher(store, external.NewLocalEncoder(cfg.EncoderDimension), nil, logger, service.MatcherOptions{
		TopN:      topN,
		CacheSize: cfg.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	matches, err := matcher.FindSimilar(ctx, result.Entities, topN)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []service.SimilarCase{}
	}
	return matches, nil
}

func runEvaluation(analyzer *service.Analyzer, path string, pretty bool) {
	reports, err := evaluation.LoadDataset(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading dataset: %v\n", err)
		os.Exit(exitProcessing)
	}

	report, err := evaluation.EvaluateSystem(analyzer, reports)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluation failed: %v\n", err)
		os.Exit(exitProcessing)
	}
	printJSON(report, pretty)
}

func printJSON(value interface{}, pretty bool) {
	encoder := json.NewEncoder(os.Stdout)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(value); err != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
		os.Exit(exitProcessing)
	}
}
