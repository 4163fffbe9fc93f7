package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
)

var tokenEmail string

// tokenCmd issues an access token for an existing user. Login is handled
// elsewhere; this is for local testing against the API.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for an existing user",
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

		role, found, err := app.Users.FindRoleByEmail(ctx, tokenEmail)
		if err != nil {
			log.Fatalf("failed to look up user: %v", err)
		}
		if !found {
			log.Fatalf("no user registered under %s", tokenEmail)
		}

		token, expiresAt, err := app.Tokens.GenerateAccessToken(tokenEmail, role)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(token)
		fmt.Println("expires at:", expiresAt.Format(time.RFC3339))
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenEmail, "email", "e", "", "email of the user")
	_ = tokenCmd.MarkFlagRequired("email")
}
