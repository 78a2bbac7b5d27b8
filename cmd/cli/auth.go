package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type authResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	User      struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
}

func (app *cli) newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Register, log in and out",
	}
	cmd.AddCommand(app.newRegisterCmd(), app.newLoginCmd(), app.newLogoutCmd(), app.newWhoamiCmd())
	return cmd
}

func (app *cli) newRegisterCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || email == "" || password == "" {
				return errors.New("--username, --email and --password are required")
			}
			payload := map[string]string{"username": username, "email": email, "password": password}
			return app.authenticate(cmd, "/auth/register", payload)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func (app *cli) newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			return app.authenticate(cmd, "/auth/login", map[string]string{"email": email, "password": password})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func (app *cli) authenticate(cmd *cobra.Command, path string, payload any) error {
	var resp authResponse
	if err := app.client.do(cmd.Context(), http.MethodPost, path, false, payload, &resp); err != nil {
		return err
	}
	if err := app.client.saveToken(resp.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	ok(app.out, "logged in as %s", resp.User.Username)
	return nil
}

func (app *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke every token of this account and forget the local one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.client.do(cmd.Context(), http.MethodPost, "/auth/logout", true, nil, nil); err != nil {
				return err
			}
			if err := app.client.clearToken(); err != nil {
				return err
			}
			ok(app.out, "logged out")
			return nil
		},
	}
}

func (app *cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var me map[string]any
			if err := app.client.do(cmd.Context(), http.MethodGet, "/auth/me", true, nil, &me); err != nil {
				return err
			}
			if app.output != outputTable {
				return render(app.out, app.output, me)
			}
			fmt.Fprintf(app.out, "%v <%v>\n", me["username"], me["email"])
			return nil
		},
	}
}
