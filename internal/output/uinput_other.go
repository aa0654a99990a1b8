//go:build !linux

package output

import "errors"

var keyCodes = map[string]keyCode{}

func newKeyDevice() (keyDevice, error) {
	return nil, errors.New("uinput backend requires linux")
}
