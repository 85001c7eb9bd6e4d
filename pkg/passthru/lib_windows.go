//go:build windows

package passthru

import (
	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

type dllLibrary struct {
	handle windows.Handle
}

func openLibrary(path string) (library, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return nil, err
	}
	return &dllLibrary{handle: h}, nil
}

func (l *dllLibrary) sym(name string) (uintptr, error) {
	return windows.GetProcAddress(l.handle, name)
}

func (l *dllLibrary) close() error {
	return windows.FreeLibrary(l.handle)
}

func bindFunc(fptr interface{}, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}
