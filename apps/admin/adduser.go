package main

import (
	"context"
	"time"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/user"
)

// addUser creates a user.User, granting all roles when isAdmin is set.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email); err != nil {
		return err
	}

	roles := []string{user.RoleStudent}
	if isAdmin {
		roles = user.AllRoles
	}

	now := time.Now().UTC()
	usr := user.User{
		Username:  uname,
		Email:     email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.CreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
