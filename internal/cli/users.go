package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/service"
)

type userOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Enabled bool   `json:"enabled"`
	Created bool   `json:"created"`
}

func toUserOutput(u *domain.User, created bool) userOutput {
	return userOutput{
		ID:      u.ID.String(),
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role.String(),
		Enabled: u.Enabled,
		Created: created,
	}
}

func newSeedAdminCmd(app *App) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the administrator account if it does not exist",
		Long:  "Flags default to SEED_ADMIN_NAME, SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}
			if name == "" {
				name = app.cfg.SeedAdminName
			}
			if email == "" {
				email = app.cfg.SeedAdminEmail
			}
			if password == "" {
				password = app.cfg.SeedAdminPassword
			}
			if email == "" || password == "" {
				return errors.New("administrator email and password are required")
			}

			users := service.NewUserService(app.store, app.cfg.BaseURL, app.logger)
			admin, created, err := users.SeedAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("seed admin: %s", domain.ErrorMessage(err))
			}
			return writeOut(cmd, app, toUserOutput(admin, created))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	return cmd
}

// createUserFlags holds the create-user inputs so they can be validated
// before a database connection is opened.
type createUserFlags struct {
	name       string
	email      string
	password   string
	phone      string
	role       string
	department string
	ward       string
	disabled   bool
}

func (f createUserFlags) params() (domain.CreateUserParams, error) {
	role, ok := domain.ParseRole(f.role)
	if !ok {
		return domain.CreateUserParams{}, fmt.Errorf("unknown role %q (want CITIZEN, OFFICER or ADMIN)", f.role)
	}
	if f.email == "" || f.password == "" || f.name == "" {
		return domain.CreateUserParams{}, errors.New("--name, --email and --password are required")
	}

	p := domain.CreateUserParams{
		Name:     f.name,
		Email:    f.email,
		Password: f.password,
		Phone:    f.phone,
		Role:     role,
		Enabled:  !f.disabled,
	}
	switch role {
	case domain.RoleCitizen:
		p.WardNumber = f.ward
	case domain.RoleOfficer:
		if f.department == "" {
			return domain.CreateUserParams{}, errors.New("--department is required for officers")
		}
		p.Department = f.department
	case domain.RoleAdmin:
	}
	return p, nil
}

func newCreateUserCmd(app *App) *cobra.Command {
	var f createUserFlags

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user of any role, bypassing email verification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := f.params()
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			users := service.NewUserService(app.store, app.cfg.BaseURL, app.logger)
			user, err := users.Create(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("create user: %s", domain.ErrorMessage(err))
			}
			return writeOut(cmd, app, toUserOutput(user, true))
		},
	}

	cmd.Flags().StringVar(&f.name, "name", "", "Display name")
	cmd.Flags().StringVar(&f.email, "email", "", "Login email")
	cmd.Flags().StringVar(&f.password, "password", "", "Initial password")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&f.role, "role", "CITIZEN", "CITIZEN, OFFICER or ADMIN")
	cmd.Flags().StringVar(&f.department, "department", "", "Officer department")
	cmd.Flags().StringVar(&f.ward, "ward", "", "Citizen ward number")
	cmd.Flags().BoolVar(&f.disabled, "disabled", false, "Create the account awaiting approval")
	return cmd
}
