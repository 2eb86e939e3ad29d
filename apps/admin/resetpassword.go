package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	return cli.accounts.ResetPassword(context.Background(), uname, pwd)
}
