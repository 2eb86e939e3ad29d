package main

import (
	"context"
	"fmt"

	"github.com/smartclass/portal/core/account"
)

// addUser registers an account with the profile of the given role.
func (cli *commandLine) addUser(role account.Role, na account.NewAccount) error {
	ctx := context.Background()
	var p account.Principal
	var err error
	switch role {
	case account.RoleStudent:
		p, err = cli.accounts.RegisterStudent(ctx, na)
	case account.RoleFaculty:
		p, err = cli.accounts.RegisterFaculty(ctx, na)
	}
	if err != nil {
		return err
	}
	fmt.Printf("created %s %q (id %d)\n", role, p.GetAccount().Username, p.GetAccount().ID)
	return nil
}
