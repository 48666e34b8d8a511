package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/cmd/vaultsync/internal/session"
)

func newSignupCmd(deps Deps) *cobra.Command {
	var serverURL string
	c := &cobra.Command{
		Use:   "signup <username> <password>",
		Short: "Create a new account and save the resulting session locally",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password := args[0], args[1]
			if serverURL == "" {
				serverURL = deps.ServerURL
			}
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			profile, err := svc.Signup(cmd.Context(), username, password, serverURL)
			if err != nil {
				return err
			}
			if err := deps.Sessions.Persist(username, svc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed up %s (verification: %s)\n", profile.Username, profile.VerificationID)
			return nil
		},
	}
	c.Flags().StringVar(&serverURL, "server-url", "", "backend server URL (defaults to the CLI's configured server)")
	return c
}

func newLoginCmd(deps Deps) *cobra.Command {
	var serverURL string
	c := &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Authenticate and save the resulting session locally",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password := args[0], args[1]
			if serverURL == "" {
				serverURL = deps.ServerURL
			}
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			profile, err := svc.Login(cmd.Context(), username, password, serverURL)
			if err != nil {
				return err
			}
			if err := deps.Sessions.Persist(username, svc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", profile.Username)
			return nil
		},
	}
	c.Flags().StringVar(&serverURL, "server-url", "", "backend server URL (defaults to the CLI's configured server)")
	return c
}

func newLogoutCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <username>",
		Short: "Revoke the server token and forget the local session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			if err := svc.Logout(cmd.Context()); err != nil {
				return err
			}
			if err := deps.Sessions.Forget(username); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged out %s\n", username)
			return nil
		},
	}
}

func newWhoamiCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami <username>",
		Short: "Print the saved session's profile and login state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if !svc.IsLoggedIn() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no saved session\n", username)
				return nil
			}
			profile := svc.Profile()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: logged in, server=%s verification=%s\n",
				profile.Username, svc.ServerURL(), profile.VerificationID)
			if svc.NeedsKDFUpgrade() {
				fmt.Fprintln(cmd.OutOrStdout(), "  warning: KDF parameters are below the current minimum; run change-password to upgrade")
			}
			return nil
		},
	}
}

func newChangePasswordCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "change-password <username> <new-password>",
		Short: "Re-derive the main key under a new password and re-seal account content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, newPassword := args[0], args[1]
			svc, err := deps.Sessions.Open(username)
			if err != nil {
				return err
			}
			if err := session.RequireLoggedIn(svc); err != nil {
				return err
			}
			if err := svc.ChangePassword(cmd.Context(), newPassword); err != nil {
				return err
			}
			if err := deps.Sessions.Persist(username, svc); err != nil {
				return err
			}
			deps.Logger.Info("password changed", zap.String("username", username))
			fmt.Fprintf(cmd.OutOrStdout(), "password changed for %s\n", username)
			return nil
		},
	}
}
