package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nexus-console/nexus-console/internal/rbac"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route permission matrix.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeRouteMatrix(cmd.OutOrStdout())
	},
}

// writeRouteMatrix prints one row per registry route with the access rule
// and whether each single role may open it. The last column is a principal
// with no roles at all.
func writeRouteMatrix(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := []string{"ROUTE", "LABEL", "ACCESS"}
	for _, role := range rbac.AllRoles {
		header = append(header, strings.ToUpper(string(role)))
	}
	header = append(header, "NO ROLES")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, route := range rbac.Routes {
		row := []string{route.String(), route.Label(), accessRule(route)}
		for _, role := range rbac.AllRoles {
			row = append(row, yesNo(routeAllows(route, rbac.NewRoleSet(role))))
		}
		row = append(row, yesNo(routeAllows(route, rbac.NewRoleSet())))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func accessRule(route rbac.Route) string {
	if route.IsPublic() {
		return "public"
	}
	if g := rbac.RequiredGroupFor(route); g != nil {
		return g.Name
	}
	return "authenticated"
}

func routeAllows(route rbac.Route, roles rbac.RoleSet) bool {
	if route.IsPublic() {
		return true
	}
	check, ok := rbac.PermissionCheck(route)
	if !ok {
		return true
	}
	return check(roles)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "-"
}
