//go:build darwin || freebsd || linux

package passthru

import "github.com/ebitengine/purego"

type dlLibrary struct {
	handle uintptr
}

func openLibrary(path string) (library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &dlLibrary{handle: h}, nil
}

func (l *dlLibrary) sym(name string) (uintptr, error) {
	return purego.Dlsym(l.handle, name)
}

func (l *dlLibrary) close() error {
	return purego.Dlclose(l.handle)
}

func bindFunc(fptr interface{}, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}
