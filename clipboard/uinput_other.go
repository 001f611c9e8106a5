//go:build !linux

package clipboard

import "errors"

var errNoUinput = errors.New("uinput typing is only available on Linux")

func typeUinput(string) error { return errNoUinput }

func VerifyUinput() (string, error) { return "", errNoUinput }
