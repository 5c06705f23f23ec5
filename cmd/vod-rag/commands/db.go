package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// DBMigrateAction はスキーマを適用するコマンドのアクション
func DBMigrateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Database.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}

	fmt.Println("スキーマを適用しました")
	return nil
}
