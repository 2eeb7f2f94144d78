package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adminkit/admin-console/internal/app"
	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/service"
)

const maxPageSize = 100

func newUsersCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User administration",
	}
	cmd.AddCommand(newUsersListCmd(opts))
	return cmd
}

type usersListFlags struct {
	search  string
	role    string
	status  string
	deleted bool
	sort    string
	desc    bool
	page    int
	size    int
}

func (f usersListFlags) query() (domain.SearchQuery, error) {
	status := domain.StatusFilter(f.status)
	switch status {
	case domain.StatusAny, domain.StatusEnabled, domain.StatusDisabled:
	default:
		return domain.SearchQuery{}, fmt.Errorf("--status must be enabled or disabled, got %q", f.status)
	}
	if f.page < 1 {
		return domain.SearchQuery{}, fmt.Errorf("--page must be at least 1")
	}
	if f.size < 1 || f.size > maxPageSize {
		return domain.SearchQuery{}, fmt.Errorf("--size must be between 1 and %d", maxPageSize)
	}

	q := domain.SearchQuery{
		SearchTerm:     strings.TrimSpace(f.search),
		RoleFilter:     f.role,
		StatusFilter:   status,
		IncludeDeleted: f.deleted,
		SortField:      f.sort,
		Page:           f.page - 1,
		PageSize:       f.size,
	}
	if f.sort != "" {
		q.SortDirection = domain.SortAsc
		if f.desc {
			q.SortDirection = domain.SortDesc
		}
	}
	return q, nil
}

func newUsersListCmd(opts *globalOptions) *cobra.Command {
	var flags usersListFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users page by page",
		Example: `  console users list --search ali --status enabled
  console users list --role ADMIN --sort username --desc --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				p, err := principal(ctx, a)
				if err != nil {
					return err
				}
				if !service.HasPermission(p, domain.PermUserRead) {
					return userFacing(domain.ErrForbidden, "")
				}

				page, err := a.Client.Search(ctx, q)
				if err != nil {
					return userFacing(err, "Failed to load users")
				}
				if opts.output == "json" {
					return printJSON(cmd.OutOrStdout(), page)
				}
				if err := printTable(cmd.OutOrStdout(), []string{"ID", "USERNAME", "EMAIL", "STATUS", "ROLES"}, userRows(page.Content)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d users)\n", page.Number+1, max(page.TotalPages, 1), page.TotalElements)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.search, "search", "", "Match username or email")
	f.StringVar(&flags.role, "role", "", "Only users holding this role")
	f.StringVar(&flags.status, "status", "", "enabled or disabled")
	f.BoolVar(&flags.deleted, "deleted", false, "Include soft-deleted users")
	f.StringVar(&flags.sort, "sort", "", "Sort field, e.g. username or createdAt")
	f.BoolVar(&flags.desc, "desc", false, "Sort descending")
	f.IntVar(&flags.page, "page", 1, "Page number, starting at 1")
	f.IntVar(&flags.size, "size", domain.DefaultPageSize, "Users per page")
	return cmd
}

func userRows(users []domain.User) [][]string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		var roles []string
		for _, r := range u.Roles() {
			roles = append(roles, r.Name)
		}
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			u.Email,
			string(u.State()),
			strings.Join(roles, ","),
		})
	}
	return rows
}
