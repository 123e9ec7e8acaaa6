package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	auth "github.com/dhaaraai/go-auth"
)

func init() {
	Migrations.MustRegister(up_20261018000001, down_20261018000001)
}

// up_20261018000001 creates the users table. The unique constraints on
// email and username back the registration conflict check.
func up_20261018000001(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// down_20261018000001 drops the users table
func down_20261018000001(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().
		Model((*auth.User)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop users table: %w", err)
	}
	return nil
}
