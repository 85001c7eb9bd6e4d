//go:build windows

package passthru

import (
	"strings"

	"golang.org/x/sys/windows/registry"
)

const passThruSupportKey = `SOFTWARE\PassThruSupport.04.04`

func FindDLLs() (prefix string, dlls []J2534DLL) {
	prefix = "x64 "
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, passThruSupportKey, registry.QUERY_VALUE|registry.ENUMERATE_SUB_KEYS|registry.WOW64_32KEY)
	if err != nil {
		return
	}
	defer k.Close()

	adapters, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return
	}

	for _, adapter := range adapters {
		dll, ok := readAdapterKey(adapter)
		if !ok {
			continue
		}
		dlls = append(dlls, dll)
	}
	return
}

func readAdapterKey(adapter string) (J2534DLL, bool) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, passThruSupportKey+`\`+adapter, registry.QUERY_VALUE|registry.WOW64_32KEY)
	if err != nil {
		return J2534DLL{}, false
	}
	defer k.Close()

	name, _, err := k.GetStringValue("Name")
	if err != nil {
		return J2534DLL{}, false
	}
	functionLibrary, _, err := k.GetStringValue("FunctionLibrary")
	if err != nil {
		return J2534DLL{}, false
	}
	vendor, _, _ := k.GetStringValue("Vendor")

	flag := func(value string) bool {
		v, _, err := k.GetIntegerValue(value)
		return err == nil && v == 1
	}
	caps := Capabilities{
		CAN:      flag("CAN"),
		CANPS:    flag("CAN_PS"),
		ISO9141:  flag("ISO9141"),
		ISO15765: flag("ISO15765"),
		ISO14230: flag("ISO14230"),
		SWCANPS:  flag("SW_CAN_PS") || strings.EqualFold(name, "tech2"),
	}
	return J2534DLL{Name: name, Vendor: vendor, FunctionLibrary: functionLibrary, Capabilities: caps}, true
}
