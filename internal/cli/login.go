// login.go implements the account commands: login, signup, logout, whoami.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/chat"
)

var emailFlag string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Prompt for email and password and store the session so later
commands and the TUI start signed in.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCredentials(cmd, auth.ModeSignIn)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Register a new account. A verification email is sent; sign in
with "threadline login" once the address is verified.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCredentials(cmd, auth.ModeSignUp)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVar(&emailFlag, "email", "", "Account email (prompted when empty)")
	signupCmd.Flags().StringVar(&emailFlag, "email", "", "Account email (prompted when empty)")
}

func runCredentials(cmd *cobra.Command, mode auth.Mode) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	email, password, err := promptCredentials(cmd.InOrStdin(), out, emailFlag)
	if err != nil {
		return err
	}
	if err := auth.ValidateCredentials(email, password); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Backend.RequestTimeout.Duration)
	defer cancel()

	if mode == auth.ModeSignUp {
		if err := e.auth.SignUp(ctx, email, password); err != nil {
			return fmt.Errorf("sign up failed: %w", err)
		}
		fmt.Fprintln(out, auth.SignUpSuccessText)
		return nil
	}

	sess, err := e.auth.SignIn(ctx, email, password)
	if err != nil {
		text, _ := auth.SignInFailure(err)
		return errors.New(text)
	}
	fmt.Fprintf(out, "Signed in as %s\n", sess.User.Email)
	return nil
}

// promptCredentials reads the email (unless given) and the password. The
// password is read without echo when in is a terminal.
func promptCredentials(in io.Reader, out io.Writer, email string) (string, string, error) {
	reader := bufio.NewReader(in)

	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("reading email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	fmt.Fprint(out, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
		return email, string(raw), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", "", fmt.Errorf("reading password: %w", err)
	}
	return email, strings.TrimRight(line, "\r\n"), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Backend.RequestTimeout.Duration)
	defer cancel()

	// Restore so the refresh token can be revoked server-side. A failed
	// restore still clears the local session below.
	_, _ = e.auth.Restore(ctx)
	if err := e.auth.SignOut(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Backend.RequestTimeout.Duration)
	defer cancel()

	out := cmd.OutOrStdout()
	status, err := e.auth.Restore(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	if status != auth.StatusAuthenticated {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}

	user := e.auth.User()
	fmt.Fprintf(out, "%s <%s>\n", chat.Username(user.Email), user.Email)
	fmt.Fprintf(out, "User ID: %s\n", user.ID)
	fmt.Fprintf(out, "Auth:    %s\n", e.cfg.Auth.URL)
	return nil
}
