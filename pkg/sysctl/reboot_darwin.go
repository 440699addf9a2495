package sysctl

import "github.com/pkg/errors"

func reboot() error {
	return errors.New("reboot not supported")
}
