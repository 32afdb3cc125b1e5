package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schoolguidance/tracker/internal/app/migrations"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	appRepos "github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/bootstrap"
	"github.com/schoolguidance/tracker/internal/pkg/schoolyear"
	"github.com/schoolguidance/tracker/internal/seed"
)

func runE(fn func(ctx context.Context) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return fn(cmd.Context())
	}
}

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var dir string
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: runE(withEnv(opts, func(ctx context.Context, e *env) error {
			if dir == "" {
				dir = e.cfg.Database.MigrationsDir
			}
			if list {
				files, err := migrations.PendingFiles(dir)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Println(migrations.VersionFromFilename(f))
				}
				return nil
			}
			return bootstrap.RunMigrations(ctx, e.pool, dir, e.log)
		})),
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to database.migrations_dir)")
	cmd.Flags().BoolVar(&list, "list", false, "print the migration files instead of applying them")
	return cmd
}

func newSeedCommand(opts *globalOptions) *cobra.Command {
	var typesOnly bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the violation-type catalog, settings row and default admin",
		Args:  cobra.NoArgs,
		RunE: runE(withEnv(opts, func(ctx context.Context, e *env) error {
			repos := appRepos.NewRepositories(e.pool)
			if typesOnly {
				created, err := seed.SeedViolationTypes(ctx, repos.ViolationTypes)
				if err != nil {
					return err
				}
				fmt.Printf("violation types created: %d\n", created)
				return nil
			}
			return seed.CreateDefaultData(ctx, repos, bootstrap.SeedOptions(e.cfg), e.log)
		})),
	}
	cmd.Flags().BoolVar(&typesOnly, "types-only", false, "only seed the violation-type catalog")
	return cmd
}

func newFixSummonedStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-summoned-status",
		Short: "Rewrite the legacy summons_sent report status to summoned",
		Args:  cobra.NoArgs,
		RunE: runE(withEnv(opts, func(ctx context.Context, e *env) error {
			updated, err := appRepos.NewRepositories(e.pool).Reports.NormalizeLegacyStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("reports updated: %d\n", updated)
			return nil
		})),
	}
}

func newCleanupInvalidTalliesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-invalid-tallies",
		Short: "Delete violations of unconfirmed reports and rebuild affected tallies",
		Args:  cobra.NoArgs,
		RunE: runE(withEnv(opts, func(ctx context.Context, e *env) error {
			deleted, recomputed, err := e.services().Violations.CleanupInvalid(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("violations deleted: %d, tallies recomputed: %d\n", deleted, recomputed)
			return nil
		})),
	}
}

func newRecomputeTalliesCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute-tallies",
		Short: "Rebuild every student's violation tally from the records",
		Args:  cobra.NoArgs,
		RunE: runE(withEnv(opts, func(ctx context.Context, e *env) error {
			done, err := e.services().Violations.RecomputeAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("tallies recomputed: %d\n", done)
			return nil
		})),
	}
}

func newRolloverCommand(opts *globalOptions) *cobra.Command {
	req := &dto.RolloverRequest{}

	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Promote every enrolled student into the next school year",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if req.NewSchoolYear != "" && !schoolyear.Valid(req.NewSchoolYear) {
				return fmt.Errorf("invalid --school-year %q, expected YYYY-YYYY", req.NewSchoolYear)
			}
			return nil
		},
		RunE: runE(withEnv(opts, func(ctx context.Context, e *env) error {
			result, err := e.services().SchoolYears.Rollover(ctx, 0, req)
			if err != nil {
				return err
			}
			mode := "applied"
			if result.DryRun {
				mode = "dry run"
			}
			fmt.Printf("%s -> %s (%s)\n", result.PreviousSchoolYear, result.NewSchoolYear, mode)
			fmt.Printf("students processed: %d, promoted: %d, history archived: %d, awaiting strand: %d\n",
				result.StudentsProcessed, result.StudentsPromoted, result.HistoryArchived, result.AwaitingStrand)
			return nil
		})),
	}
	cmd.Flags().StringVar(&req.NewSchoolYear, "school-year", "", "target school year (defaults to the year after the current one)")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "compute the result and roll it back")
	return cmd
}
