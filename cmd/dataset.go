package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"faceclock/internal/config"
	"faceclock/internal/recognize"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Bulk enrollment from an image dataset",
}

var datasetSyncCmd = &cobra.Command{
	Use:   "sync <dir>",
	Short: "Enroll every identity found in a dataset directory",
	Long: `Enroll every identity found in a dataset directory.

Each identity is a subdirectory named "<id>_<display name>" holding at
least three face images; the first three (sorted by filename) become
the enrollment samples. Identities already enrolled are re-enrolled.

Examples:
  # Enroll everyone under ./dataset with default concurrency
  faceclock dataset sync ./dataset

  # Limit concurrency, JSON output for scripting
  faceclock dataset sync --concurrency 2 --json ./dataset`,
	Args: cobra.ExactArgs(1),
	RunE: runDatasetSync,
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetSyncCmd)

	datasetSyncCmd.Flags().Int("concurrency", 4, "Number of parallel enrollments")
	datasetSyncCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// datasetEntry is one identity directory scheduled for enrollment.
type datasetEntry struct {
	identityID  string
	displayName string
	images      []string
}

// DatasetSyncResult represents the result of a dataset sync operation.
type DatasetSyncResult struct {
	Success    bool   `json:"success"`
	Identities int    `json:"identities"`
	Enrolled   int    `json:"enrolled"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scanDataset lists identity directories with enough samples. A
// directory without three images is skipped, not an error.
func scanDataset(dir string) ([]datasetEntry, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read dataset directory: %w", err)
	}

	var out []datasetEntry
	skipped := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		id, name, ok := strings.Cut(e.Name(), "_")
		if !ok || id == "" || name == "" {
			skipped++
			continue
		}

		images, err := listImages(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, 0, err
		}
		if len(images) < recognize.RequiredSamples {
			skipped++
			continue
		}

		out = append(out, datasetEntry{
			identityID:  id,
			displayName: name,
			images:      images[:recognize.RequiredSamples],
		})
	}
	return out, skipped, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read identity directory %s: %w", dir, err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp", ".gif":
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

func runDatasetSync(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	ctx := context.Background()
	startTime := time.Now()

	identities, skipped, err := scanDataset(args[0])
	if err != nil {
		return err
	}

	if len(identities) == 0 {
		result := DatasetSyncResult{
			Success:    true,
			Skipped:    skipped,
			DurationMs: time.Since(startTime).Milliseconds(),
			Message:    "no identity directories with enough samples found",
		}
		if jsonOutput {
			return outputJSON(result)
		}
		fmt.Println("No identity directories with enough samples found.")
		return nil
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", cfg.Database.Driver, err)
	}
	defer backend.Close()

	matcher, err := newMatcher(ctx, cfg, backend)
	if err != nil {
		return err
	}
	recognizer := newRecognizer(cfg, matcher, backend)

	if !jsonOutput {
		fmt.Printf("Found %d identities to enroll\n\n", len(identities))
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(identities),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("identities"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var enrolled, errorCount int64
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, entry := range identities {
		wg.Add(1)
		go func(entry datasetEntry) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := enrollEntry(ctx, recognizer, entry); err != nil {
				atomic.AddInt64(&errorCount, 1)
				if !jsonOutput {
					fmt.Fprintf(os.Stderr, "\n%s: %v\n", entry.identityID, err)
				}
			} else {
				atomic.AddInt64(&enrolled, 1)
			}

			if bar != nil {
				bar.Add(1)
			}
		}(entry)
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	result := DatasetSyncResult{
		Success:    errorCount == 0,
		Identities: len(identities),
		Enrolled:   int(enrolled),
		Skipped:    skipped,
		Errors:     int(errorCount),
		DurationMs: time.Since(startTime).Milliseconds(),
	}
	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("Enrolled %d/%d identities (%d skipped, %d errors)\n",
		result.Enrolled, result.Identities, result.Skipped, result.Errors)
	return nil
}

func enrollEntry(ctx context.Context, recognizer *recognize.Service, entry datasetEntry) error {
	images := make([][]byte, 0, len(entry.images))
	for _, path := range entry.images {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read image %s: %w", path, err)
		}
		images = append(images, data)
	}

	_, err := recognizer.Register(ctx, entry.identityID, entry.displayName, images)
	return err
}
