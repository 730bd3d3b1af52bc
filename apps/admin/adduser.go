package main

import (
	"context"
	"time"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/user"
)

// addUser creates a user.User, or updates it when the email is taken.
func (cli *commandLine) addUser(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:      name,
			Email:     email,
			Plan:      user.PlanFree,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if name != "" {
		usr.Name = name
	}
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
