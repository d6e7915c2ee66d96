package main

import (
	"context"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.staffSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.staffSvc.SetPassword(ctx, usr, pwd)
	return err
}
