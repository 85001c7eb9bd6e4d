package passthru

type Capabilities struct {
	CAN      bool
	CANPS    bool
	ISO15765 bool
	ISO9141  bool
	ISO14230 bool
	SWCANPS  bool
}

// J2534DLL is an installed passthru driver as advertised by the system.
type J2534DLL struct {
	Name            string
	Vendor          string
	FunctionLibrary string
	Capabilities    Capabilities
}
