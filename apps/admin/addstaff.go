package main

import (
	"context"

	"github.com/emisoft/buzon/core"
	"github.com/emisoft/buzon/core/staff"
)

// addStaff creates a staff account, or resets the password of an existing one.
func (cli *commandLine) addStaff(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.staffSvc.GetByEmail(ctx, email)
	if err != nil {
		if err != staff.ErrNotFound {
			return err
		}
		_, err = cli.staffSvc.Create(ctx, staff.NewUser{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			IsAdmin:         isAdmin,
		})
		return err
	}

	usr.Name = name
	usr.IsAdmin = isAdmin
	usr.IsActive = true
	_, err = cli.staffSvc.SetPassword(ctx, usr, pwd)
	return err
}
