package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/i474232898/weather-history/internal/aggregate"
	"github.com/i474232898/weather-history/internal/config"
)

func main() {
	cfg, err := config.LoadMerge()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	files, err := aggregate.Discover(cfg.Dir, cfg.Pattern, cfg.OutputFile)
	if err != nil {
		log.Fatalf("failed to discover input files: %v", err)
	}
	if len(files) == 0 {
		fmt.Printf("No CSV files found with the pattern '%s'\n", cfg.Pattern)
		return
	}

	for _, f := range files {
		fmt.Printf("Processing %s...\n", f)
	}
	res, err := aggregate.Merge(files, cfg.OutputFile)
	if errors.Is(err, aggregate.ErrMissingKeyColumns) {
		log.Fatalf("Error: %v in the input CSV files", err)
	}
	if err != nil {
		log.Fatalf("merge failed: %v", err)
	}

	fmt.Printf("Merged CSV file created: %s\n", cfg.OutputFile)
	fmt.Printf("Files processed: %d\n", len(res.Files))
	fmt.Printf("Total number of rows: %d\n", res.Rows)
	fmt.Printf("Total number of columns: %d\n", len(res.Columns))
	fmt.Printf("Columns: %s\n", strings.Join(res.Columns, ", "))
	fmt.Println()

	rep, err := aggregate.Audit(cfg.OutputFile)
	if err != nil {
		log.Fatalf("duplicate check failed: %v", err)
	}
	if err := rep.Write(os.Stdout); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
}
