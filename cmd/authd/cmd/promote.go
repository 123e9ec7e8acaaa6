package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	auth "github.com/dhaaraai/go-auth"
	"github.com/dhaaraai/go-auth/internal/db"
)

var promoteRole string

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Change the role of a registered identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, ok := auth.ParseRole(promoteRole)
		if !ok {
			return fmt.Errorf("unknown role %q, expected one of %v", promoteRole, auth.GetAllRoles())
		}

		database, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(database)

		users := auth.NewUsersRepository(database)

		var updated *auth.User
		err = database.RunInTx(cmd.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
			repo := users.WithTx(tx)
			user, err := repo.GetByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			updated, err = repo.UpdateRole(ctx, user.ID, role)
			return err
		})
		if err != nil {
			return fmt.Errorf("promote %s: %w", args[0], err)
		}

		logger.Info("role updated", "user_id", updated.ID.String(), "role", string(updated.EffectiveRole()))
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", updated.Email, updated.EffectiveRole())
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteRole, "role", string(auth.RoleAdmin), "Target role: CLIENT, LAWYER or ADMIN")
}
