//go:build !darwin && !freebsd && !linux && !windows

package passthru

import (
	"fmt"
	"runtime"
)

func openLibrary(path string) (library, error) {
	return nil, fmt.Errorf("loading %s: native drivers are not supported on %s", path, runtime.GOOS)
}

func bindFunc(fptr interface{}, addr uintptr) {}
