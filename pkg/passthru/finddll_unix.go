//go:build !windows

package passthru

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// J2534Config is the descriptor format used by the unix passthru ports,
// one JSON file per driver in ~/.passthru.
type J2534Config struct {
	CAN         bool   `json:"CAN"`
	CANPS       bool   `json:"CAN_PS"`
	ISO15765    bool   `json:"ISO15765"`
	ISO9141     bool   `json:"ISO9141"`
	ISO14230    bool   `json:"ISO14230"`
	SWCANPS     bool   `json:"SW_CAN_PS"`
	FUNCTIONLIB string `json:"FUNCTION_LIB"`
	NAME        string `json:"NAME"`
	VENDOR      string `json:"VENDOR"`
	COMPORT     string `json:"COM-PORT"`
}

func FindDLLs() (prefix string, libs []J2534DLL) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	return "", findDLLsIn(home, filepath.Join(home, ".passthru"))
}

func findDLLsIn(home, configDir string) (libs []J2534DLL) {
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		return nil
	}
	sort.Strings(files)
	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			log.Printf("passthru: %v", err)
			continue
		}
		var config J2534Config
		if err := json.Unmarshal(b, &config); err != nil {
			log.Printf("passthru: %s: %v", file, err)
			continue
		}
		if strings.HasPrefix(config.FUNCTIONLIB, "~/") {
			config.FUNCTIONLIB = filepath.Join(home, config.FUNCTIONLIB[2:])
		}
		switch filepath.Ext(config.FUNCTIONLIB) {
		case ".so", ".dylib":
		default:
			continue
		}
		if _, err := os.Stat(config.FUNCTIONLIB); err != nil {
			continue
		}
		name := strings.TrimSpace(config.VENDOR + " " + config.NAME)
		libs = append(libs, J2534DLL{
			Name:            name,
			Vendor:          config.VENDOR,
			FunctionLibrary: config.FUNCTIONLIB,
			Capabilities: Capabilities{
				CAN:      config.CAN,
				CANPS:    config.CANPS,
				ISO15765: config.ISO15765,
				ISO9141:  config.ISO9141,
				ISO14230: config.ISO14230,
				SWCANPS:  config.SWCANPS,
			},
		})
	}
	return libs
}
