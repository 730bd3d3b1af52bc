package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/user"
)

func (cli *commandLine) setPlan(email, plan string) error {
	ctx := context.Background()
	plan = core.CleanString(plan, true /* lower */)

	valid := false
	for _, p := range user.AllPlans {
		if plan == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown plan %q, expected one of: %s", plan, strings.Join(user.AllPlans, ", "))
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	return cli.usrRepo.SetUserPlan(ctx, usr.ID, plan)
}
