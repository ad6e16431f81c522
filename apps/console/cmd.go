package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/smartpocket/console/core"
	"github.com/smartpocket/console/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	store *session.Store
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL -role admin|school [-school-code CODE] - sign in; the password is prompted next")
	fmt.Fprintln(cli.out, "  logout    - sign out and clear the stored session")
	fmt.Fprintln(cli.out, "  whoami    - print the signed-in identity")
	fmt.Fprintln(cli.out, "  dashboard - open the role-gated dashboard")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginEmail := loginCmd.String("email", "", "The account email. The password will be prompted next.")
	loginRole := loginCmd.String("role", "", "The console role: admin or school.")
	loginSchoolCode := loginCmd.String("school-code", "", "The school code (school role only).")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" || *loginRole == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginEmail, string(pwd), *loginRole, *loginSchoolCode)
	case "logout":
		return cli.logout(ctx)
	case "whoami":
		return cli.whoami(ctx)
	case "dashboard":
		return cli.dashboard(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, email, pwd, role, schoolCode string) error {
	creds := session.Credentials{
		Email:      email,
		Password:   pwd,
		Role:       role,
		SchoolCode: schoolCode,
	}
	if err := creds.Validate(); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			for fld, msg := range core.TranslateValidationErrors(vErrs) {
				fmt.Fprintf(cli.out, "%s: %s\n", fld, msg)
			}
			return errHelp
		}
		return err
	}

	sess, err := cli.store.Login(ctx, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "signed in as %s (%s)\n", sess.Identity.Email, sess.Identity.Role)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	cli.store.Initialize(ctx)
	cli.store.Logout(ctx)
	fmt.Fprintln(cli.out, "signed out")
	return nil
}

func (cli *commandLine) whoami(ctx context.Context) error {
	cli.store.Initialize(ctx)

	sess := cli.store.Current()
	if sess.Identity == nil {
		fmt.Fprintln(cli.out, "not signed in")
		return nil
	}

	ident := sess.Identity
	fmt.Fprintf(cli.out, "id:    %s\n", ident.ID)
	fmt.Fprintf(cli.out, "email: %s\n", ident.Email)
	fmt.Fprintf(cli.out, "role:  %s\n", ident.Role)
	if ident.DisplayName != "" {
		fmt.Fprintf(cli.out, "name:  %s\n", ident.DisplayName)
	}
	if ident.SchoolID != "" {
		fmt.Fprintf(cli.out, "school: %s (%s)\n", ident.SchoolName, ident.SchoolID)
	}
	return nil
}
