package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var purgeTokensCmd = &cobra.Command{
	Use:   "purge-tokens",
	Short: "Delete revocations of tokens that have already expired",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configDir)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		ctx := context.Background()
		app, err := newApplication(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer app.Close()

		n, err := app.Revocation.PurgeExpired(ctx)
		if err != nil {
			log.Fatalf("failed to purge revoked tokens: %v", err)
		}
		fmt.Printf("Purged %d expired revocations\n", n)
	},
}
