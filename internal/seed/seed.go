package seed

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	appModels "github.com/schoolguidance/tracker/internal/app/models"
	appRepos "github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/auth"
	"github.com/schoolguidance/tracker/internal/pkg/schoolyear"
)

const allGrades = "7,8,9,10,11,12"

// ViolationCatalog is the default violation-type catalog, one entry per category
var ViolationCatalog = []appModels.ViolationType{
	{Name: "Tardiness", Category: appModels.CategoryTardiness, SeverityLevel: appModels.SeverityLevelLow,
		Description: "Arriving late to class"},
	{Name: "Using Vape/Cigarette", Category: appModels.CategoryVape, SeverityLevel: appModels.SeverityLevelHigh,
		Description: "Using vaping devices or cigarettes on school grounds"},
	{Name: "Misbehavior", Category: appModels.CategoryMisbehavior, SeverityLevel: appModels.SeverityLevelMedium,
		Description: "General disruptive behavior"},
	{Name: "Bullying - Physical, Verbal/Emotional, Cyberbullying, Sexual, Racism", Category: appModels.CategoryBullying,
		SeverityLevel: appModels.SeverityLevelHigh,
		Description:   "Any form of bullying including physical, verbal, emotional, cyber, sexual, or racial harassment"},
	{Name: "Gambling", Category: appModels.CategoryGambling, SeverityLevel: appModels.SeverityLevelMedium,
		Description: "Gambling activities on school grounds"},
	{Name: "Haircut", Category: appModels.CategoryHaircut, SeverityLevel: appModels.SeverityLevelLow,
		Description: "Inappropriate hairstyle"},
	{Name: "Not Wearing Proper Uniform/ID", Category: appModels.CategoryUniform, SeverityLevel: appModels.SeverityLevelLow,
		Description: "Not wearing required school uniform or identification"},
	{Name: "Cheating", Category: appModels.CategoryCheating, SeverityLevel: appModels.SeverityLevelHigh,
		Description: "Dishonesty in examinations or assignments"},
	{Name: "Cutting Classes", Category: appModels.CategoryCuttingClasses, SeverityLevel: appModels.SeverityLevelMedium,
		Description: "Skipping classes without permission"},
	{Name: "Absenteeism", Category: appModels.CategoryAbsenteeism, SeverityLevel: appModels.SeverityLevelMedium,
		Description: "Frequent unexcused absences"},
	{Name: "Others", Category: appModels.CategoryOthers, SeverityLevel: appModels.SeverityLevelMedium,
		Description: "Other violations not listed above"},
}

// Options controls the default admin account
type Options struct {
	AdminUsername string
	AdminEmail    string
	// AdminPassword empty skips creating the admin
	AdminPassword string
}

// CreateDefaultData seeds the violation catalog, the settings row and the
// default admin. Every step is idempotent; failures are collected and the
// remaining steps still run.
func CreateDefaultData(ctx context.Context, repos *appRepos.Repositories, opts Options, lgr zerolog.Logger) error {
	var finalErr error

	created, err := SeedViolationTypes(ctx, repos.ViolationTypes)
	if err != nil {
		lgr.Error().Err(err).Msg("Error seeding violation types")
		finalErr = errors.Join(finalErr, err)
	} else if created > 0 {
		lgr.Info().Int("created", created).Msg("Violation types seeded")
	}

	year := schoolyear.Default(time.Now())
	inserted, err := repos.Settings.EnsureDefault(ctx, year)
	if err != nil {
		lgr.Error().Err(err).Msg("Error initializing system settings")
		finalErr = errors.Join(finalErr, err)
	} else if inserted {
		lgr.Info().Str("schoolYear", year).Msg("System settings initialized")
	}

	if err := ensureAdmin(ctx, repos.Users, opts, lgr); err != nil {
		lgr.Error().Err(err).Msg("Error creating default admin user")
		finalErr = errors.Join(finalErr, err)
	}

	return finalErr
}

// SeedViolationTypes inserts the catalog entries that are missing and
// returns how many were added
func SeedViolationTypes(ctx context.Context, types *appRepos.ViolationTypeRepository) (int, error) {
	created := 0
	for _, vt := range ViolationCatalog {
		vt.ApplicableGrades = allGrades
		ok, err := types.InsertIfMissing(ctx, &vt)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func ensureAdmin(ctx context.Context, users *appRepos.UserRepository, opts Options, lgr zerolog.Logger) error {
	if opts.AdminUsername == "" {
		opts.AdminUsername = "admin"
	}
	if opts.AdminEmail == "" {
		opts.AdminEmail = "admin@guidance.local"
	}

	exists, err := users.UsernameExists(ctx, opts.AdminUsername)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if opts.AdminPassword == "" {
		lgr.Warn().Msg("No default admin password configured, skipping admin creation")
		return nil
	}

	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}
	admin := &appModels.User{
		Username:  opts.AdminUsername,
		Email:     opts.AdminEmail,
		Password:  hash,
		FirstName: "System",
		LastName:  "Administrator",
		RoleType:  appModels.RoleAdmin,
		IsActive:  true,
	}
	if err := users.Create(ctx, admin); err != nil {
		if apperrors.Is(err, apperrors.ErrUsernameAlreadyExists, apperrors.ErrEmailAlreadyExists) {
			return nil
		}
		return err
	}

	lgr.Info().Str("username", admin.Username).Msg("Default admin user created")
	return nil
}
