package sdk

import (
	"strconv"
	"strings"
)

// ErrorCode is the result code carried by every SensorError and delivered on
// the error stream. Success is the only zero value; every other code is either
// an operational error (CEPTON_ERROR_*) or a device fault (CEPTON_FAULT_*).
type ErrorCode int32

const (
	Success ErrorCode = 0

	ErrorGeneric            ErrorCode = -1
	ErrorOutOfMemory        ErrorCode = -2
	ErrorSensorNotFound     ErrorCode = -4
	ErrorSDKVersionMismatch ErrorCode = -5
	ErrorCommunication      ErrorCode = -6
	ErrorTooManyCallbacks   ErrorCode = -7
	ErrorInvalidArguments   ErrorCode = -8
	ErrorAlreadyInitialized ErrorCode = -9
	ErrorNotInitialized     ErrorCode = -10
	ErrorInvalidFileType    ErrorCode = -11
	ErrorFileIO             ErrorCode = -12
	ErrorCorruptFile        ErrorCode = -13
	ErrorNotOpen            ErrorCode = -14
	ErrorEOF                ErrorCode = -15

	FaultInternal            ErrorCode = -1000
	FaultExtremeTemperature  ErrorCode = -1001
	FaultExtremeHumidity     ErrorCode = -1002
	FaultExtremeAcceleration ErrorCode = -1003
	FaultAbnormalFOV         ErrorCode = -1004
	FaultAbnormalFrameRate   ErrorCode = -1005
	FaultMotorMalfunction    ErrorCode = -1006
	FaultLaserMalfunction    ErrorCode = -1007
	FaultDetectorMalfunction ErrorCode = -1008
)

const (
	errorPrefix = "CEPTON_ERROR_"
	faultPrefix = "CEPTON_FAULT_"
)

var codeNames = map[ErrorCode]string{
	Success: "CEPTON_SUCCESS",

	ErrorGeneric:            "CEPTON_ERROR_GENERIC",
	ErrorOutOfMemory:        "CEPTON_ERROR_OUT_OF_MEMORY",
	ErrorSensorNotFound:     "CEPTON_ERROR_SENSOR_NOT_FOUND",
	ErrorSDKVersionMismatch: "CEPTON_ERROR_SDK_VERSION_MISMATCH",
	ErrorCommunication:      "CEPTON_ERROR_COMMUNICATION",
	ErrorTooManyCallbacks:   "CEPTON_ERROR_TOO_MANY_CALLBACKS",
	ErrorInvalidArguments:   "CEPTON_ERROR_INVALID_ARGUMENTS",
	ErrorAlreadyInitialized: "CEPTON_ERROR_ALREADY_INITIALIZED",
	ErrorNotInitialized:     "CEPTON_ERROR_NOT_INITIALIZED",
	ErrorInvalidFileType:    "CEPTON_ERROR_INVALID_FILE_TYPE",
	ErrorFileIO:             "CEPTON_ERROR_FILE_IO",
	ErrorCorruptFile:        "CEPTON_ERROR_CORRUPT_FILE",
	ErrorNotOpen:            "CEPTON_ERROR_NOT_OPEN",
	ErrorEOF:                "CEPTON_ERROR_EOF",

	FaultInternal:            "CEPTON_FAULT_INTERNAL",
	FaultExtremeTemperature:  "CEPTON_FAULT_EXTREME_TEMPERATURE",
	FaultExtremeHumidity:     "CEPTON_FAULT_EXTREME_HUMIDITY",
	FaultExtremeAcceleration: "CEPTON_FAULT_EXTREME_ACCELERATION",
	FaultAbnormalFOV:         "CEPTON_FAULT_ABNORMAL_FOV",
	FaultAbnormalFrameRate:   "CEPTON_FAULT_ABNORMAL_FRAME_RATE",
	FaultMotorMalfunction:    "CEPTON_FAULT_MOTOR_MALFUNCTION",
	FaultLaserMalfunction:    "CEPTON_FAULT_LASER_MALFUNCTION",
	FaultDetectorMalfunction: "CEPTON_FAULT_DETECTOR_MALFUNCTION",
}

// Codes returns every named code, success first.
func Codes() []ErrorCode {
	codes := make([]ErrorCode, 0, len(codeNames))
	codes = append(codes, Success)
	for c := ErrorGeneric; c >= ErrorEOF; c-- {
		if _, ok := codeNames[c]; ok {
			codes = append(codes, c)
		}
	}
	for c := FaultInternal; c >= FaultDetectorMalfunction; c-- {
		codes = append(codes, c)
	}
	return codes
}

// Name returns the string name of the code, or "" if the code is unknown.
func (c ErrorCode) Name() string {
	return codeNames[c]
}

// String implements fmt.Stringer. Unknown codes print their numeric value.
func (c ErrorCode) String() string {
	if name := c.Name(); name != "" {
		return name
	}
	return "CEPTON_UNKNOWN_CODE(" + strconv.Itoa(int(c)) + ")"
}

// IsSuccess reports whether c is Success.
func (c ErrorCode) IsSuccess() bool { return c == Success }

// IsError reports whether the name of c has the form CEPTON_ERROR_*.
func (c ErrorCode) IsError() bool { return strings.HasPrefix(c.Name(), errorPrefix) }

// IsFault reports whether the name of c has the form CEPTON_FAULT_*.
func (c ErrorCode) IsFault() bool { return strings.HasPrefix(c.Name(), faultPrefix) }

// Category returns "success", "error", "fault" or "" for unknown codes.
func (c ErrorCode) Category() string {
	switch {
	case c.IsSuccess():
		return "success"
	case c.IsError():
		return "error"
	case c.IsFault():
		return "fault"
	}
	return ""
}
