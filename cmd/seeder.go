package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/frahmantamala/access-control/internal"
	"github.com/frahmantamala/access-control/internal/permission"
	"github.com/frahmantamala/access-control/internal/user"
	"github.com/spf13/cobra"
)

var seedDemoUsers bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the baseline roles and permissions",
	Long:  `Create the baseline permissions, the baseline roles and the super admin account. Existing rows are left untouched.`,
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

		if err := app.Seed(ctx); err != nil {
			log.Fatalf("failed to seed: %v", err)
		}
		fmt.Println("Seeded baseline permissions and roles")
		fmt.Println("Ensured super admin:", cfg.Authz.SuperAdminEmail)

		if !seedDemoUsers {
			return
		}

		demo := []user.CreateUserDTO{
			{FirstName: "Ada", LastName: "Admin", Email: "admin@example.com", Role: permission.RoleAdmin},
			{FirstName: "Tess", LastName: "Teacher", Email: "teacher@example.com", Role: permission.RoleTeacher},
			{FirstName: "Sam", LastName: "Student", Email: "student@example.com", Role: permission.RoleStudent},
		}
		for _, dto := range demo {
			_, err := app.Users.Create(ctx, dto)
			var appErr *internal.AppError
			if errors.As(err, &appErr) && appErr.Code == internal.ErrCodeUserExists {
				fmt.Println("demo user already exists:", dto.Email)
				continue
			}
			if err != nil {
				log.Fatalf("failed to create demo user %s: %v", dto.Email, err)
			}
			fmt.Printf("Seeded demo user %s with role %s\n", dto.Email, dto.Role)
		}
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemoUsers, "demo-users", false, "also create one account per baseline role for local testing")
}
