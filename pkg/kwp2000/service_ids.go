package kwp2000

import "fmt"

const (
	/* DIAGNOSTIC MANAGEMENT FUNCTIONAL UNIT */
	START_DIAGNOSTIC_SESSION = 0x10
	ECU_RESET                = 0x11
	READ_ECU_IDENTIFICATION  = 0x1A
	STOP_DIAGNOSTIC_SESSION  = 0x20
	SECURITY_ACCESS          = 0x27
	TESTER_PRESENT           = 0x3E

	/* DATA TRANSMISSION FUNCTIONAL UNIT */
	READ_DATA_BY_LOCAL_IDENTIFIER   = 0x21
	READ_DATA_BY_COMMON_IDENTIFIER  = 0x22
	READ_MEMORY_BY_ADDRESS          = 0x23
	WRITE_DATA_BY_LOCAL_IDENTIFIER  = 0x3B
	WRITE_DATA_BY_COMMON_IDENTIFIER = 0x2E

	/* STORED DATA TRANSMISSION FUNCTIONAL UNIT */
	READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS = 0x18
	CLEAR_DIAGNOSTIC_INFORMATION            = 0x14

	/* INPUTOUTPUT CONTROL FUNCTIONAL UNIT */
	INPUT_OUTPUT_CONTROL_BY_LOCAL_IDENTIFIER = 0x30

	/* REMOTE ACTIVATION OF ROUTINE FUNCTIONAL UNIT */
	START_ROUTINE_BY_LOCAL_IDENTIFIER = 0x31

	NEGATIVE_RESPONSE = 0x7F

	// Positive responses carry the request service id plus this offset
	POSITIVE_RESPONSE_OFFSET = 0x40
)

// Diagnostic session types for StartDiagnosticSession
const (
	STANDARD_SESSION            = 0x81
	PROGRAMMING_SESSION         = 0x85
	DEVELOPMENT_SESSION         = 0x86
	EXTENDED_DIAGNOSTIC_SESSION = 0x92
)

// TesterPresent response required
const RESPONSE_REQUIRED = 0x01

// ReadDTCByStatus: report identified DTCs and their status, all groups
const (
	DTC_STATUS_IDENTIFIED = 0x02
	DTC_GROUP_ALL_HI      = 0xFF
	DTC_GROUP_ALL_LO      = 0x00
)

func ServiceName(sid byte) string {
	switch sid {
	case START_DIAGNOSTIC_SESSION:
		return "StartDiagnosticSession"
	case ECU_RESET:
		return "ECUReset"
	case READ_ECU_IDENTIFICATION:
		return "ReadECUIdentification"
	case STOP_DIAGNOSTIC_SESSION:
		return "StopDiagnosticSession"
	case SECURITY_ACCESS:
		return "SecurityAccess"
	case TESTER_PRESENT:
		return "TesterPresent"
	case READ_DATA_BY_LOCAL_IDENTIFIER:
		return "ReadDataByLocalIdentifier"
	case READ_DATA_BY_COMMON_IDENTIFIER:
		return "ReadDataByCommonIdentifier"
	case READ_MEMORY_BY_ADDRESS:
		return "ReadMemoryByAddress"
	case WRITE_DATA_BY_LOCAL_IDENTIFIER:
		return "WriteDataByLocalIdentifier"
	case WRITE_DATA_BY_COMMON_IDENTIFIER:
		return "WriteDataByCommonIdentifier"
	case READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS:
		return "ReadDiagnosticTroubleCodesByStatus"
	case CLEAR_DIAGNOSTIC_INFORMATION:
		return "ClearDiagnosticInformation"
	case INPUT_OUTPUT_CONTROL_BY_LOCAL_IDENTIFIER:
		return "InputOutputControlByLocalIdentifier"
	case START_ROUTINE_BY_LOCAL_IDENTIFIER:
		return "StartRoutineByLocalIdentifier"
	}
	return fmt.Sprintf("service 0x%02X", sid)
}
