package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"faceclock/internal/attendance"
	"faceclock/internal/config"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize a face image and mark attendance",
	Long: `Recognize the person in a face image and mark attendance for them.

Examples:
  faceclock recognize --mode Login frame.jpg
  faceclock recognize --mode Logout frame.jpg

  # Identify only, without touching the ledger
  faceclock recognize --dry-run frame.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("mode", "Login", "Attendance mode: Login or Logout")
	recognizeCmd.Flags().Bool("dry-run", false, "Identify only, do not mark attendance")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	dryRun := mustGetBool(cmd, "dry-run")

	mode, err := attendance.ParseMode(mustGetString(cmd, "mode"))
	if err != nil {
		return err
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image %s: %w", args[0], err)
	}

	cfg := config.Load()
	ctx := context.Background()

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

	if dryRun {
		res, err := recognizer.Identify(ctx, image)
		if err != nil {
			return fmt.Errorf("identify: %w", err)
		}
		if !res.Accepted {
			fmt.Printf("No match (nearest distance %.4f)\n", res.Distance)
			return nil
		}
		fmt.Printf("Matched %s (%s), distance %.4f\n", res.DisplayName, res.IdentityID, res.Distance)
		return nil
	}

	rec, err := recognizer.Recognize(ctx, image, mode)
	if err != nil {
		return fmt.Errorf("recognize: %w", err)
	}

	if !rec.Matched {
		fmt.Printf("No match (nearest distance %.4f)\n", rec.Distance)
		return nil
	}

	fmt.Printf("Matched %s (%s), distance %.4f\n", rec.DisplayName, rec.IdentityID, rec.Distance)
	att := rec.Attendance
	if att.Accepted {
		fmt.Printf("%s marked at %s\n", att.Mode, att.Time.Format("15:04:05"))
	} else {
		fmt.Printf("%s rejected: %s\n", att.Mode, att.Reason)
	}
	return nil
}
