package passdiag

import "fmt"

// DeviceDescriptor identifies an installed passthrough driver.
type DeviceDescriptor struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	DriverPath string `json:"driver_path"`
}

func (d DeviceDescriptor) String() string {
	return fmt.Sprintf("#%d %s (%s)", d.ID, d.Name, d.DriverPath)
}
