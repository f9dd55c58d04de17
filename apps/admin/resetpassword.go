package main

import (
	"fmt"

	"github.com/acevedod1974/gradebook/core"
)

// resetPassword force-sets a student's password. The password policy still
// applies; the old password is not required.
func (cli *commandLine) resetPassword(email, pwd string) error {
	email = core.CleanString(email, true /* lower */)

	if err := cli.authSvc.ChangePassword(email, pwd); err != nil {
		return err
	}
	if err := cli.snapshot(); err != nil {
		return err
	}
	fmt.Printf("password reset for %s\n", email)
	return nil
}
