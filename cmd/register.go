package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"faceclock/internal/config"
)

var registerCmd = &cobra.Command{
	Use:   "register <image1> <image2> <image3>",
	Short: "Enroll an identity from three face images",
	Long: `Enroll an identity from exactly three face images. The per-image
embeddings are averaged into one reference embedding; registering an
existing identity replaces its enrollment.

Examples:
  faceclock register --id E1 --name "Alice" a1.jpg a2.jpg a3.jpg`,
	Args: cobra.ExactArgs(3),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("id", "", "Identity ID (required)")
	registerCmd.Flags().String("name", "", "Display name (required)")
	registerCmd.MarkFlagRequired("id")
	registerCmd.MarkFlagRequired("name")
}

func runRegister(cmd *cobra.Command, args []string) error {
	identityID := mustGetString(cmd, "id")
	name := mustGetString(cmd, "name")

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

	images := make([][]byte, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read image %s: %w", path, err)
		}
		images = append(images, data)
	}

	enrolled, err := recognizer.Register(ctx, identityID, name, images)
	if err != nil {
		return fmt.Errorf("register %s: %w", identityID, err)
	}

	fmt.Printf("Registered %s (%s), embedding dimension %d\n",
		enrolled.DisplayName, enrolled.IdentityID, len(enrolled.Embedding))
	return nil
}
