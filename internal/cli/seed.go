package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	authsvc "estate-backend/internal/application/auth"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/database"
	"estate-backend/internal/pkg/constants"
	"estate-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// SeedInput describes the user created by the seed command.
type SeedInput struct {
	Fullname string
	Email    string
	Password string
	Role     string
	Company  string
}

func (in SeedInput) validate() error {
	switch {
	case !validation.IsValidFullname(in.Fullname):
		return errors.New("fullname may only contain letters, spaces, hyphens and apostrophes")
	case !validation.IsValidEmail(in.Email):
		return errors.New("invalid email")
	case !validation.IsValidPassword(in.Password):
		return errors.New("password needs 8+ characters with a letter, a digit and a special character")
	case !constants.IsValidRole(in.Role):
		return fmt.Errorf("unknown role %q", in.Role)
	}
	return nil
}

// Seed creates the user, and its company when named. An existing email gets its password, role and company reset.
func Seed(ctx context.Context, db *gorm.DB, in SeedInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := authsvc.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	var user domain.User
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company *domain.Company
		if in.Company != "" {
			var c domain.Company
			if err := tx.Where(domain.Company{Name: in.Company}).FirstOrCreate(&c).Error; err != nil {
				return err
			}
			company = &c
		}
		err := tx.Where("email = ?", in.Email).First(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user.Fullname = in.Fullname
		user.Email = in.Email
		user.PasswordHash = hash
		user.Role = in.Role
		if company != nil {
			user.CompanyID = &company.CompanyID
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", user.UserID.String()).Str("role", user.Role).Msg("seed: user ready")
	return &user, nil
}

func SeedCmd() *cobra.Command {
	var in SeedInput
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or reset a login user",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, sqlite, err := openDB(cmd)
			if err != nil {
				return err
			}
			if sqlite {
				if err := database.AutoMigrate(db); err != nil {
					return err
				}
			}
			u, err := Seed(cmd.Context(), db, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) ready, id %s\n", u.Email, u.Role, u.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Fullname, "fullname", "Estate Admin", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "login password")
	cmd.Flags().StringVar(&in.Role, "role", constants.Admin, "role: admin, manager, agent or portal")
	cmd.Flags().StringVar(&in.Company, "company", "", "company to attach the user to")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
