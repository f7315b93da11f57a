package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcrovella/fluxtwin/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  fluxtwin migrate      # Run all pending migrations
  fluxtwin migrate 0    # Rollback all migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrateCmd,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrateCmd(cmd *cobra.Command, args []string) error {
	ctx := newContext()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate.EnsureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	currentVersion, dirty, err := migrate.GetCurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", currentVersion)
	}
	allMigrations, err := migrate.LoadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	fmt.Printf("Current version: %d\n", currentVersion)

	if len(args) == 0 {
		if err := migrate.RunAll(ctx, db); err != nil {
			return err
		}
	} else {
		targetVersion, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number: %s", args[0])
		}
		switch {
		case targetVersion > currentVersion:
			err = migrate.MigrateUpTo(ctx, db, allMigrations, currentVersion, targetVersion)
		case targetVersion < currentVersion:
			err = migrate.MigrateDownTo(ctx, db, allMigrations, currentVersion, targetVersion)
		default:
			fmt.Println("Already at target version")
		}
		if err != nil {
			return err
		}
	}

	newVersion, _, _ := migrate.GetCurrentVersion(ctx, db)
	fmt.Printf("Migrated to version %d\n", newVersion)
	return nil
}
