package cli

import (
	"context"
	"flag"
)

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *App) cmdRegister(ctx context.Context, args []string) error {
	fs := a.flagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var err error
	if *name == "" {
		if *name, err = a.prompt("Name"); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = a.prompt("Email"); err != nil {
			return err
		}
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}

	res, err := a.client.Register(ctx, *name, *email, password)
	if err != nil {
		return err
	}
	if res.Token == "" {
		a.printf("registered %s, run tourctl login\n", *email)
		return nil
	}
	a.printf("registered %s, you are logged in\n", *email)
	return nil
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var err error
	if *email == "" {
		if *email, err = a.prompt("Email"); err != nil {
			return err
		}
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}

	if _, err := a.client.Login(ctx, *email, password); err != nil {
		return err
	}
	a.printf("logged in as %s\n", *email)
	return nil
}

func (a *App) cmdLogout(_ context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	if err := a.client.Logout(); err != nil {
		return err
	}
	a.printf("logged out\n")
	return nil
}
