package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"agentmarket/internal/auth"
	"agentmarket/internal/models"
)

func authCommands(run runFunc) []*cobra.Command {
	var email, password string

	signin := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			pw, err := passwordOrPrompt(password, a)
			if err != nil {
				return err
			}
			if err := a.auth.SignIn(ctx, email, pw); err != nil {
				return errReported
			}
			return nil
		}),
	}
	signin.Flags().StringVar(&email, "email", "", "account email")
	signin.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	signin.MarkFlagRequired("email")

	var role, firstName, lastName, username string
	signup := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			pw, err := passwordOrPrompt(password, a)
			if err != nil {
				return err
			}
			meta := models.UserMetadata{
				Role:      models.ParseRole(role),
				FirstName: optional(firstName),
				LastName:  optional(lastName),
				Username:  optional(username),
			}
			if err := a.auth.SignUp(ctx, email, pw, meta); err != nil {
				return errReported
			}
			return nil
		}),
	}
	signup.Flags().StringVar(&email, "email", "", "account email")
	signup.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	signup.Flags().StringVar(&role, "role", string(models.RoleUser), "account role: user or creator")
	signup.Flags().StringVar(&firstName, "first-name", "", "first name")
	signup.Flags().StringVar(&lastName, "last-name", "", "last name")
	signup.Flags().StringVar(&username, "username", "", "public username")
	signup.MarkFlagRequired("email")

	signout := &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			if a.auth.State() != auth.StateAuthenticated {
				fmt.Fprintln(a.out, "not signed in")
				return nil
			}
			if err := a.auth.SignOut(ctx); err != nil {
				return errReported
			}
			return nil
		}),
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: run(func(_ context.Context, a *app, _ []string) error {
			u := a.auth.User()
			if u == nil {
				fmt.Fprintln(a.out, "not signed in")
				return nil
			}
			fmt.Fprintf(a.out, "%s (%s)\n", u.Email, u.Role())
			fmt.Fprintf(a.out, "id:   %s\n", u.ID)
			fmt.Fprintf(a.out, "home: %s\n", auth.Destination(u.Role()))
			return nil
		}),
	}

	var resetEmail string
	reset := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		RunE: run(func(ctx context.Context, a *app, _ []string) error {
			if err := a.auth.ResetPassword(ctx, resetEmail); err != nil {
				return errReported
			}
			return nil
		}),
	}
	reset.Flags().StringVar(&resetEmail, "email", "", "account email")
	reset.MarkFlagRequired("email")

	return []*cobra.Command{signin, signup, signout, whoami, reset}
}

// passwordOrPrompt returns flag, or reads one line from stdin.
func passwordOrPrompt(flag string, a *app) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return readLine(a.in, a.errOut, "Password: ")
}

func readLine(in io.Reader, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
