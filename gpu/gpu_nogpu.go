//go:build nogpu

package gpu

import "errors"

// Available always reports false in nogpu builds.
func Available() (bool, error) {
	return false, errors.New("gpu: built with nogpu tag")
}
