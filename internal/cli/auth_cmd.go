package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adminkit/admin-console/internal/app"
	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/core/service"
)

var errNotLoggedIn = errors.New("not logged in: run 'console login' first")

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and store the session for the active profile",
		Example: `  # Prompt for the password
  console login alice

  # Sign in against another API
  console login alice --api-url https://admin.example.com/api`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFor(cmd, password)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				sess, err := a.Session.Login(ctx, ports.LoginInput{Username: args[0], Password: pw})
				if err != nil {
					return userFacing(err, "Login failed")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", sess.User.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var in ports.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordFor(cmd, in.Password)
			if err != nil {
				return err
			}
			in.Password = pw
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				sess, err := a.Session.Register(ctx, in)
				if err != nil {
					return userFacing(err, "Registration failed")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", sess.User.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "Username (3-50 characters)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password, at least 8 characters (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session of the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				a.Session.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

type whoami struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Sections    []string `json:"sections"`
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in principal and what it may do",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				p, err := principal(ctx, a)
				if err != nil {
					return err
				}
				w := describe(p)
				if opts.output == "json" {
					return printJSON(cmd.OutOrStdout(), w)
				}
				return printTable(cmd.OutOrStdout(), []string{"FIELD", "VALUE"}, [][]string{
					{"username", w.Username},
					{"email", w.Email},
					{"roles", strings.Join(w.Roles, ", ")},
					{"permissions", strings.Join(w.Permissions, ", ")},
					{"sections", strings.Join(w.Sections, ", ")},
				})
			})
		},
	}
}

// principal restores the session from the store, refreshing the access
// token when needed.
func principal(ctx context.Context, a *app.App) (*domain.User, error) {
	if !a.Session.IsAuthenticated(ctx) {
		return nil, errNotLoggedIn
	}
	if p := a.Session.Principal(); p != nil {
		return p, nil
	}
	sess, err := a.Session.Refresh(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRefreshToken) {
			return nil, errNotLoggedIn
		}
		return nil, userFacing(err, "Could not restore the session")
	}
	if sess.User == nil {
		return nil, errNotLoggedIn
	}
	return sess.User, nil
}

func describe(p *domain.User) whoami {
	w := whoami{Username: p.Username, Email: p.Email}
	for _, r := range p.Roles() {
		w.Roles = append(w.Roles, r.Name)
		for _, perm := range r.Permissions {
			if !slices.Contains(w.Permissions, perm.Name) {
				w.Permissions = append(w.Permissions, perm.Name)
			}
		}
	}
	slices.Sort(w.Permissions)
	for _, item := range service.VisibleNavItems(p) {
		w.Sections = append(w.Sections, item.Label)
	}
	return w
}

// withApp opens the console services for one command and closes them after.
func withApp(cmd *cobra.Command, opts *globalOptions, run func(ctx context.Context, a *app.App) error) error {
	a, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			a.Log.Warn().Err(err).Msg("closing store")
		}
	}()
	return run(cmd.Context(), a)
}

// passwordFor returns flagValue, or prompts for the password. The prompt
// hides input on a terminal and reads one line otherwise.
func passwordFor(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
