package main

import (
	"context"
	"fmt"

	"github.com/smartpocket/console/core/session"
	"github.com/smartpocket/console/core/view"
)

func (cli *commandLine) dashboard(ctx context.Context) error {
	cli.store.Initialize(ctx)

	sess := cli.store.Current()
	if view.Route(sess) == view.Loading {
		fmt.Fprintln(cli.out, "Loading...")
		<-cli.store.Done()
		sess = cli.store.Current()
	}

	switch view.Route(sess) {
	case view.Login:
		fmt.Fprintln(cli.out, "not signed in; run `smartpocket login` first")
	case view.AdminDashboard:
		cli.renderAdminDashboard(sess.Identity)
	case view.SchoolDashboard:
		cli.renderSchoolDashboard(sess.Identity)
	case view.AccessDenied:
		fmt.Fprintf(cli.out, "Access denied: role %q is not supported by this console.\n", sess.Identity.Role)
		fmt.Fprintln(cli.out, "Sign in with a supported account and run `smartpocket dashboard` again.")
	}
	return nil
}

// layoutTitle covers a broader role set than the router: the *_admin
// synonyms are historical and unreachable through Route, which sends them to
// AccessDenied first.
func layoutTitle(role string) string {
	switch role {
	case session.RoleAdmin, "super_admin":
		return "Super Admin Console"
	case session.RoleSchool, "school_admin":
		return "School Admin Console"
	}
	return "Console"
}

func (cli *commandLine) renderHeader(ident *session.Identity) {
	title := layoutTitle(ident.Role)
	fmt.Fprintf(cli.out, "== Smart Pocket | %s ==\n", title)
	name := ident.DisplayName
	if name == "" {
		name = ident.Email
	}
	fmt.Fprintf(cli.out, "signed in as %s\n\n", name)
}

func (cli *commandLine) renderAdminDashboard(ident *session.Identity) {
	cli.renderHeader(ident)
	fmt.Fprintln(cli.out, "Sections:")
	fmt.Fprintln(cli.out, "  - Schools")
	fmt.Fprintln(cli.out, "  - Parents")
	fmt.Fprintln(cli.out, "  - Students")
	fmt.Fprintln(cli.out, "  - Transactions")
	fmt.Fprintln(cli.out, "  - Analytics")
}

func (cli *commandLine) renderSchoolDashboard(ident *session.Identity) {
	cli.renderHeader(ident)
	if ident.SchoolName != "" {
		fmt.Fprintf(cli.out, "school: %s (%s)\n", ident.SchoolName, ident.SchoolID)
	}
	fmt.Fprintln(cli.out, "Sections:")
	fmt.Fprintln(cli.out, "  - Students")
	fmt.Fprintln(cli.out, "  - Payments")
	fmt.Fprintln(cli.out, "  - Transactions")
}
