package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicpulse/civicpulse/internal/auth"
	"github.com/civicpulse/civicpulse/internal/service"
)

func newTokenCmd(app *App) *cobra.Command {
	var email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an existing user",
		Long:  "Intended for local testing. The token is signed with JWT_SECRET.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			row, err := app.store.GetUserByEmail(cmd.Context(), email)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no user with email %s", email)
				}
				return err
			}
			users := service.NewUserService(app.store, app.cfg.BaseURL, app.logger)
			user, err := users.FindByID(cmd.Context(), row.ID)
			if err != nil {
				return err
			}
			if !user.Enabled {
				return fmt.Errorf("user %s is awaiting approval", email)
			}

			if ttl <= 0 {
				ttl = app.cfg.JWTTTL
			}
			issuer, err := auth.NewTokenIssuer(app.cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.Issue(user)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]any{
				"token":      token,
				"expires_at": expiresAt.UTC().Format(time.RFC3339),
				"user":       toUserOutput(user, false),
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the user to impersonate")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: JWT_TTL)")
	return cmd
}
