package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/emisoft/buzon/core/staff"
	dummydb "github.com/emisoft/buzon/storage/database/dummy"
)

var staffRepo staff.Repository

func setup(t *testing.T) *commandLine {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	staffRepo = dummydb.NewStaffRepository(db)

	return &commandLine{
		staffSvc: staff.NewService(staffRepo),
	}
}

func createStaff(t *testing.T, svc *staff.Service, name, email, pwd string, isAdmin bool) staff.User {
	usr, err := svc.Create(context.Background(), staff.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		IsAdmin:         isAdmin,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	extra   interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotCmds []string
	migrateFunc = func(db *sql.DB) error {
		gotCmds = append(gotCmds, "up")
		return nil
	}
	rollbackFunc = func(db *sql.DB) error {
		gotCmds = append(gotCmds, "down")
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErr: errHelp},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if len(gotCmds) != 2 || gotCmds[0] != "up" || gotCmds[1] != "down" {
		t.Errorf("migrate commands = %v, want [up down]", gotCmds)
	}
}

func Test_commandLine_addStaff(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addstaff"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"addstaff", "-name", "Ana"}, wantErr: errHelp},
		{name: "no password", args: []string{"addstaff", "-name", "Ana", "-email", "ana@emi.edu.bo"}, wantErr: errHelp},
		{name: "create", args: []string{"addstaff", "-name", "Ana", "-email", "ana@emi.edu.bo"}, extra: extra{pwd: "s3cret-pwd"}},
		{name: "create admin", args: []string{"addstaff", "-name", "Max", "-email", "max@emi.edu.bo", "-admin"}, extra: extra{pwd: "s3cret-pwd"}},
		{name: "existing resets password", args: []string{"addstaff", "-name", "Ana", "-email", "ana@emi.edu.bo"}, extra: extra{pwd: "0ther-pwd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	usr, err := cli.staffSvc.GetByEmail(context.Background(), "ana@emi.edu.bo")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	if err = usr.CheckPassword("0ther-pwd"); err != nil {
		t.Error("existing account's password was not reset")
	}

	adm, err := cli.staffSvc.GetByEmail(context.Background(), "max@emi.edu.bo")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	if !adm.IsAdmin {
		t.Error("expected admin rights")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createStaff(t, cli.staffSvc, "Eva", "eva@emi.edu.bo", "1nitial-pwd", false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "eva@emi.edu.bo"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@emi.edu.bo"}, extra: extra{pwd: "lol"}, wantErr: staff.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "eva@emi.edu.bo"}, extra: extra{pwd: "n3w-pwd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	refreshed, err := staffRepo.GetUserByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
		t.Error("failed to update new password")
	}
}
