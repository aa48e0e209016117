package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"text/tabwriter"

	"github.com/nexus-console/nexus-console/internal/auth"
	"github.com/nexus-console/nexus-console/internal/config"
	"github.com/nexus-console/nexus-console/internal/datetime"
	"github.com/nexus-console/nexus-console/internal/identity"
	"github.com/nexus-console/nexus-console/internal/logging"
	"github.com/nexus-console/nexus-console/internal/nexusapi"
	"github.com/nexus-console/nexus-console/internal/notify"
	"github.com/nexus-console/nexus-console/internal/rbac"
	"github.com/nexus-console/nexus-console/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and change Nexus users and their roles.",
}

var (
	usersEmail         string
	usersPasswordStdin bool
	usersPage          int
	usersPageSize      int
)

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of users.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(cmd, func(ctx context.Context, api *nexusapi.Client) error {
			page, err := api.ListUsers(ctx, nexusapi.ListOptions{Page: usersPage, PageSize: usersPageSize})
			if err != nil {
				return err
			}
			return writeUserTable(cmd.OutOrStdout(), page)
		})
	},
}

var usersGetCmd = &cobra.Command{
	Use:   "get <user-id>",
	Short: "Show one user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAPI(cmd, func(ctx context.Context, api *nexusapi.Client) error {
			u, err := api.GetUser(ctx, args[0])
			if err != nil {
				return err
			}
			return writeUser(cmd.OutOrStdout(), u)
		})
	},
}

var usersSetRolesCmd = &cobra.Command{
	Use:   "set-roles <user-id> [role...]",
	Short: "Replace the user's console roles. Roles outside the known set are kept.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, err := parseRoleArgs(args[1:])
		if err != nil {
			return err
		}
		return withAPI(cmd, func(ctx context.Context, api *nexusapi.Client) error {
			u, err := api.SetUserRoles(ctx, args[0], desired)
			if err != nil {
				return err
			}
			return writeUser(cmd.OutOrStdout(), u)
		})
	},
}

var usersAddRoleCmd = &cobra.Command{
	Use:   "add-role <user-id> <role>",
	Short: "Grant one role.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRoleCall(cmd, args, (*nexusapi.Client).AddRole)
	},
}

var usersRemoveRoleCmd = &cobra.Command{
	Use:   "remove-role <user-id> <role>",
	Short: "Revoke one role.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRoleCall(cmd, args, (*nexusapi.Client).RemoveRole)
	},
}

var usersHashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print an argon2id hash for a development users file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := resolvePassword(cmd, true)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		cmd.Println(hash)
		return nil
	},
}

type roleCall func(*nexusapi.Client, context.Context, string, rbac.Role) (*nexusapi.User, error)

func runRoleCall(cmd *cobra.Command, args []string, call roleCall) error {
	role, ok := rbac.ParseRole(strings.TrimSpace(args[1]))
	if !ok {
		return unknownRoleError(args[1])
	}
	return withAPI(cmd, func(ctx context.Context, api *nexusapi.Client) error {
		u, err := call(api, ctx, args[0], role)
		if err != nil {
			return err
		}
		return writeUser(cmd.OutOrStdout(), u)
	})
}

// withAPI signs the operator in with their own console credentials and
// hands fn a client that carries their ID token. The client reports its
// failures through the stderr notifier, so those exit without a second
// message.
func withAPI(cmd *cobra.Command, fn func(context.Context, *nexusapi.Client) error) error {
	email := auth.NormalizeEmail(usersEmail)
	if email == "" {
		return usageError("--email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cliLogger(cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := overlayVault(ctx, &cfg, logger); err != nil {
		return err
	}
	provider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	password, err := resolvePassword(cmd, false)
	if err != nil {
		return err
	}

	sess := session.New(session.Options{Provider: provider, Store: &session.MemoryStore{}, Logger: logger})
	defer sess.Teardown()
	if err := sess.Init(ctx); err != nil {
		return err
	}
	if _, err := sess.SignIn(ctx, email, password); err != nil {
		return err
	}

	ts, err := sess.TokenSource(ctx)
	if err != nil {
		return err
	}

	notifier := &stderrNotifier{w: cmd.ErrOrStderr()}
	ctx = notify.WithNotifier(ctx, notifier)
	api := nexusapi.New(cfg.NexusAPIURL, identity.IDTokenFunc(ts), cfg.NexusAPITimeout, logging.Discard())

	if err := fn(ctx, api); err != nil {
		if notifier.reportedError() {
			return &exitError{code: exitCodeForFault(err), err: err, silent: true}
		}
		return err
	}
	return nil
}

// cliLogger keeps interactive output quiet: warnings and errors only, as
// text on stderr.
func cliLogger(w io.Writer) *slog.Logger {
	cfg, err := logging.LoadConfigFromEnv()
	if err != nil {
		cfg = logging.DefaultConfig()
	}
	cfg.Format = "text"
	if cfg.Level < slog.LevelWarn {
		cfg.Level = slog.LevelWarn
	}
	return logging.NewLogger(cfg, w, "")
}

type stderrNotifier struct {
	w      io.Writer
	errors atomic.Int32
}

func (n *stderrNotifier) Notify(_ context.Context, t notify.Toast) {
	if t.Severity == notify.SeverityError {
		n.errors.Add(1)
	}
	if t.Message == "" {
		fmt.Fprintln(n.w, t.Title)
		return
	}
	fmt.Fprintf(n.w, "%s: %s\n", t.Title, t.Message)
}

func (n *stderrNotifier) reportedError() bool {
	return n.errors.Load() > 0
}

func parseRoleArgs(args []string) (rbac.RoleSet, error) {
	var roles []rbac.Role
	for _, arg := range args {
		for _, raw := range strings.Split(arg, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			role, ok := rbac.ParseRole(raw)
			if !ok {
				return rbac.RoleSet{}, unknownRoleError(raw)
			}
			roles = append(roles, role)
		}
	}
	return rbac.NewRoleSet(roles...), nil
}

func unknownRoleError(raw string) error {
	known := make([]string, 0, len(rbac.AllRoles))
	for _, r := range rbac.AllRoles {
		known = append(known, string(r))
	}
	return usageError("unknown role %q (known roles: %s)", raw, strings.Join(known, ", "))
}

func writeUserTable(w io.Writer, page *nexusapi.PagedResponse[nexusapi.User]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLES\tSTATUS\tLAST SIGN-IN")
	for _, u := range page.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Email, dash(u.DisplayName), dash(strings.Join(u.Roles, ",")), userStatus(u), dash(datetime.FormatSortable(u.LastSignInAt)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d (%d users)\n", page.PageNumber, max(page.TotalPages, 1), page.TotalCount)
	return err
}

func writeUser(w io.Writer, u *nexusapi.User) error {
	known, unknown := u.RoleSet()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", u.ID)
	fmt.Fprintf(tw, "email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "name:\t%s\n", dash(u.DisplayName))
	fmt.Fprintf(tw, "status:\t%s\n", userStatus(*u))
	fmt.Fprintf(tw, "email verified:\t%t\n", u.EmailVerified)
	fmt.Fprintf(tw, "roles:\t%s\n", dash(strings.Join(known.Strings(), ",")))
	if len(unknown) > 0 {
		fmt.Fprintf(tw, "other roles:\t%s\n", strings.Join(unknown, ","))
	}
	fmt.Fprintf(tw, "created:\t%s\n", dash(datetime.FormatSortable(u.CreatedAt)))
	fmt.Fprintf(tw, "last sign-in:\t%s\n", dash(datetime.FormatSortable(u.LastSignInAt)))
	return tw.Flush()
}

func userStatus(u nexusapi.User) string {
	if u.Disabled {
		return "disabled"
	}
	return "active"
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// resolvePassword reads the password from stdin when --password-stdin is
// set, otherwise prompts on the terminal. confirm asks twice.
func resolvePassword(cmd *cobra.Command, confirm bool) (string, error) {
	if usersPasswordStdin {
		return readPasswordLine(cmd.InOrStdin())
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", usageError("no password provided (use --password-stdin or run from a terminal)")
	}

	prompt := cmd.ErrOrStderr()
	fmt.Fprint(prompt, "Password: ")
	pass1, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	if len(pass1) == 0 {
		return "", errors.New("password is empty")
	}
	if !confirm {
		return string(pass1), nil
	}

	fmt.Fprint(prompt, "Confirm password: ")
	pass2, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	if string(pass1) != string(pass2) {
		return "", errors.New("passwords do not match")
	}
	return string(pass1), nil
}

func readPasswordLine(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", usageError("stdin is a terminal; omit --password-stdin to be prompted")
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("password is empty")
	}
	password := strings.TrimRight(scanner.Text(), "\r\n")
	if password == "" {
		return "", errors.New("password is empty")
	}
	return password, nil
}

func init() {
	usersCmd.AddCommand(usersListCmd, usersGetCmd, usersSetRolesCmd, usersAddRoleCmd, usersRemoveRoleCmd, usersHashPasswordCmd)
	usersCmd.PersistentFlags().StringVar(&usersEmail, "email", "", "Email of the operator to sign in as")
	usersCmd.PersistentFlags().BoolVar(&usersPasswordStdin, "password-stdin", false, "Read the password from stdin")
	usersListCmd.Flags().IntVar(&usersPage, "page", 1, "Page number")
	usersListCmd.Flags().IntVar(&usersPageSize, "page-size", 20, "Users per page")
}
