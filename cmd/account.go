package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"duochat/internal/app/api"
	"duochat/internal/app/session"
	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/logx"
)

var regFlags api.Credentials

// registerCmd creates an account or signs in to an existing one.
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register or sign in",
	Long: `Register a new account, or sign in when the email is already registered.
Name, email and password are all required.`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

// whoamiCmd prints the stored session.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

// logoutCmd clears the stored session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Long:  "Sign out. Open chat sessions sharing the session file close their conversation.",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	registerCmd.Flags().StringVar(&regFlags.Name, "name", "", "display name")
	registerCmd.Flags().StringVar(&regFlags.Email, "email", "", "email address")
	registerCmd.Flags().StringVar(&regFlags.Password, "password", "", "password")
}

func runRegister(cmd *cobra.Command, _ []string) error {
	client := api.New(rt.cfg.APIURL, rt.cfg.RequestTimeout, nil)
	defer client.Close()

	reg, err := client.RegisterOrLogin(cmd.Context(), regFlags)
	if err != nil {
		return err
	}

	if err := rt.store.Save(reg.Session); err != nil {
		return err
	}

	logx.Info("Session stored", "user_id", reg.Session.UID, "path", rt.store.Path())

	out := cmd.OutOrStdout()
	if reg.Message != "" {
		fmt.Fprintln(out, reg.Message)
	}
	fmt.Fprintf(out, "Signed in as %s.\n", reg.Session.Label())
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	sess, err := rt.store.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", sess.Label(), sess.UID)
	if sess.Email != "" {
		fmt.Fprintf(out, "email:   %s\n", sess.Email)
	}
	if sess.Token != "" {
		if exp, err := jwt.ExpiresAt(sess.Token); err == nil && !exp.IsZero() {
			fmt.Fprintf(out, "expires: %s\n", exp.Local().Format(time.RFC1123))
		}
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if err := rt.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}

// signedIn loads the session and an API client authenticated with it.
func signedIn() (*session.Session, *api.Client, error) {
	sess, err := rt.store.Load()
	if err != nil {
		return nil, nil, err
	}

	token := sess.Token
	client := api.New(rt.cfg.APIURL, rt.cfg.RequestTimeout, func() string { return token })

	return sess, client, nil
}
