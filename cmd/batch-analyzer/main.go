package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/mikey/llm-phishing-detector/internal/batch"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/di"
	"github.com/mikey/llm-phishing-detector/internal/mailparse"
	"github.com/mikey/llm-phishing-detector/internal/report"
	"go.uber.org/zap"
)

var (
	inputDir   = flag.String("dir", "", "Directory of email files to analyze")
	pattern    = flag.String("glob", "*.eml", "Filename pattern within the input directory")
	outputFile = flag.String("output", "", "Write a JSON report to this file (stdout summary otherwise)")
)

func main() {
	flag.Parse()

	if *inputDir == "" {
		fmt.Println("Usage: batch-analyzer -dir <directory> [-glob <pattern>] [-output <file>]")
		os.Exit(1)
	}

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// fileReport pairs a source file with its analysis outcome for output
type fileReport struct {
	File      string               `json:"file"`
	Error     string               `json:"error,omitempty"`
	Score     int                  `json:"score"`
	RiskLevel core.RiskLevel       `json:"risk_level,omitempty"`
	Degraded  bool                 `json:"degraded"`
	Threats   []threatEntry        `json:"threats,omitempty"`
	Result    *core.AnalysisResult `json:"-"`
}

type threatEntry struct {
	Label    string `json:"label"`
	Evidence string `json:"evidence"`
	Weight   int    `json:"weight"`
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	coordinator *batch.Coordinator,
	judge core.ModelJudge,
	resultCache core.ResultCache,
) error {
	defer logger.Sync()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	files, err := filepath.Glob(filepath.Join(*inputDir, *pattern))
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		logger.Warn("No email files matched",
			zap.String("dir", *inputDir),
			zap.String("glob", *pattern))
		return nil
	}
	logger.Info("Starting batch analysis", zap.Int("emails", len(files)))

	// Parse every file up front; unparseable files are reported alongside
	// analysis failures without aborting the batch
	emails := make([]*core.EmailRecord, 0, len(files))
	emailFiles := make([]string, 0, len(files))
	reports := make([]fileReport, 0, len(files))

	for _, path := range files {
		file, err := os.Open(path)
		if err != nil {
			reports = append(reports, fileReport{File: path, Error: err.Error()})
			continue
		}
		email, err := mailparse.ReadEmail(file)
		file.Close()
		if err != nil {
			logger.Warn("Skipping unparseable email", zap.String("file", path), zap.Error(err))
			reports = append(reports, fileReport{File: path, Error: err.Error()})
			continue
		}
		emails = append(emails, email)
		emailFiles = append(emailFiles, path)
	}

	startTime := time.Now()
	results := coordinator.AnalyzeAll(ctx, emails)
	duration := time.Since(startTime)

	for _, item := range results {
		entry := fileReport{File: emailFiles[item.Index]}
		if item.Err != nil {
			entry.Error = item.Err.Error()
		} else {
			entry.Score = item.Result.Score
			entry.RiskLevel = item.Result.RiskLevel
			entry.Degraded = item.Result.Degraded
			for _, threat := range item.Result.Threats {
				entry.Threats = append(entry.Threats, threatEntry(threat))
			}
			entry.Result = item.Result
		}
		reports = append(reports, entry)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].File < reports[j].File })

	if err := writeOutput(reports); err != nil {
		return err
	}
	printSummary(reports, duration)

	// Close any resources that need closing
	if closer, ok := judge.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close model judge", zap.Error(err))
		}
	}
	if stopper, ok := resultCache.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	return ctx.Err()
}

// writeOutput writes the full JSON report when an output file is configured
func writeOutput(reports []fileReport) error {
	if *outputFile == "" {
		return nil
	}
	encoded, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch report: %w", err)
	}
	if err := os.WriteFile(*outputFile, encoded, 0644); err != nil {
		return fmt.Errorf("failed to write batch report: %w", err)
	}
	return nil
}

// printSummary prints a per-file line plus batch totals to stdout
func printSummary(reports []fileReport, duration time.Duration) {
	var failed, degraded, highRisk int

	fmt.Printf("\n=== Batch Results ===\n")
	for _, entry := range reports {
		switch {
		case entry.Error != "":
			failed++
			fmt.Printf("%-50s ERROR: %s\n", entry.File, entry.Error)
		default:
			if entry.Degraded {
				degraded++
			}
			if entry.RiskLevel == core.RiskHigh {
				highRisk++
			}
			fmt.Printf("%-50s score=%3d risk=%s\n", entry.File, entry.Score, entry.RiskLevel)
			for _, recommendation := range report.Recommendations(entry.Result) {
				fmt.Printf("%-50s   - %s\n", "", recommendation)
			}
		}
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Analyzed: %d\n", len(reports)-failed)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Printf("Degraded: %d\n", degraded)
	fmt.Printf("High risk: %d\n", highRisk)
	fmt.Printf("Processing time: %v\n", duration)
}
