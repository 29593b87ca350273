package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/api"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// promptField and promptPassword point to the interactive input helpers and
// can be swapped in tests.
var promptField = PromptField
var promptPassword = PromptPassword

// Register prompts for the customer's details and creates the account.
func (a *App) Register(ctx context.Context) error {
	var req api.RegisterRequest
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Enter first name", &req.FirstName},
		{"Enter last name", &req.LastName},
		{"Enter email", &req.Email},
		{"Enter username", &req.Username},
	}
	for _, f := range fields {
		v, err := promptField(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	req.Password = string(password)

	acct, err := a.client.Register(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (customer %d, user %d)\n",
		acct.UserInfo.Username, acct.CustomerInfo.CustID, acct.UserInfo.UserID)
	return nil
}

// Login prompts for credentials and keeps the returned token in memory.
func (a *App) Login(ctx context.Context) error {
	userName, err := promptField(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	login, err := a.client.Login(ctx, userName, string(password))
	if err != nil {
		return err
	}

	a.userName = login.UserInfo.Username
	fmt.Fprintf(a.out, "Logged in as %s\n", a.userName)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	login, err := a.client.WhoAmI(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "user %s (id %d)\n", login.UserInfo.Username, login.UserInfo.UserID)
	if c := login.CustomerInfo; c != nil {
		fmt.Fprintf(a.out, "customer %d: %s %s <%s>\n", c.CustID, c.CustName.FirstName, c.CustName.LastName, c.Email)
	}
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	diag, err := a.client.Ping(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "store %s: %s (%s)\n", diag.Backend, diag.State, diag.Latency)
	return nil
}

// Logout removes the server session; the token is dropped either way.
func (a *App) Logout(ctx context.Context) error {
	msg, err := a.client.Logout(ctx)
	a.userName = ""
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, msg)
	return nil
}
