package geocom

import "strconv"

// ReturnCode is a GeoCom return code. The same code space is used by the
// communication layer and by the instrument. String returns the mnemonic
// used in the instrument manuals, e.g. GrcComTimedOut is COM_TIMEDOUT.
type ReturnCode uint16

// General return codes.
const (
	GrcOK             ReturnCode = 0
	GrcUndefined      ReturnCode = 1
	GrcIvParam        ReturnCode = 2
	GrcIvResult       ReturnCode = 3
	GrcFatal          ReturnCode = 4
	GrcNotImpl        ReturnCode = 5
	GrcTimeOut        ReturnCode = 6
	GrcSetIncompl     ReturnCode = 7
	GrcAbort          ReturnCode = 8
	GrcNoMemory       ReturnCode = 9
	GrcNotInit        ReturnCode = 10
	GrcShutDown       ReturnCode = 12
	GrcSysBusy        ReturnCode = 13
	GrcHwFailure      ReturnCode = 14
	GrcAbortAppl      ReturnCode = 15
	GrcLowPower       ReturnCode = 16
	GrcIvVersion      ReturnCode = 17
	GrcBattEmpty      ReturnCode = 18
	GrcNoEvent        ReturnCode = 20
	GrcOutOfTemp      ReturnCode = 21
	GrcInstrumentTilt ReturnCode = 22
	GrcComSetting     ReturnCode = 23
	GrcNoAction       ReturnCode = 24
	GrcSleepMode      ReturnCode = 25
	GrcNotOK          ReturnCode = 26
	GrcNA             ReturnCode = 27
	GrcOverflow       ReturnCode = 28
	GrcStopped        ReturnCode = 29
)

// Communication return codes.
const (
	GrcComEro                ReturnCode = 3072
	GrcComCantEncode         ReturnCode = 3073
	GrcComCantDecode         ReturnCode = 3074
	GrcComCantSend           ReturnCode = 3075
	GrcComCantRecv           ReturnCode = 3076
	GrcComTimedOut           ReturnCode = 3077
	GrcComWrongFormat        ReturnCode = 3078
	GrcComVerMismatch        ReturnCode = 3079
	GrcComCantDecodeReq      ReturnCode = 3080
	GrcComProcUnavail        ReturnCode = 3081
	GrcComCantEncodeRep      ReturnCode = 3082
	GrcComSystemErr          ReturnCode = 3083
	GrcComFailed             ReturnCode = 3085
	GrcComNoBinary           ReturnCode = 3086
	GrcComIntr               ReturnCode = 3087
	GrcComRequires8DBits     ReturnCode = 3090
	GrcComTrIDMismatch       ReturnCode = 3093
	GrcComNotGeoCom          ReturnCode = 3094
	GrcComUnknownPort        ReturnCode = 3095
	GrcComEroEnd             ReturnCode = 3099
	GrcComOverrun            ReturnCode = 3100
	GrcComSrvrRxChecksumErrr ReturnCode = 3101
	GrcComClntRxChecksumErrr ReturnCode = 3102
	GrcComPortNotAvailable   ReturnCode = 3103
	GrcComPortNotOpen        ReturnCode = 3104
	GrcComNoPartner          ReturnCode = 3105
	GrcComEroNotStarted      ReturnCode = 3106
	GrcComConsReq            ReturnCode = 3107
	GrcComSrvrIsSleeping     ReturnCode = 3108
	GrcComSrvrIsOff          ReturnCode = 3109
	GrcComNoChecksum         ReturnCode = 3110
)

var returnCodeNames = map[ReturnCode]string{
	GrcOK:             "OK",
	GrcUndefined:      "UNDEFINED",
	GrcIvParam:        "IVPARAM",
	GrcIvResult:       "IVRESULT",
	GrcFatal:          "FATAL",
	GrcNotImpl:        "NOT_IMPL",
	GrcTimeOut:        "TIME_OUT",
	GrcSetIncompl:     "SET_INCOMPL",
	GrcAbort:          "ABORT",
	GrcNoMemory:       "NOMEMORY",
	GrcNotInit:        "NOTINIT",
	GrcShutDown:       "SHUT_DOWN",
	GrcSysBusy:        "SYSBUSY",
	GrcHwFailure:      "HWFAILURE",
	GrcAbortAppl:      "ABORT_APPL",
	GrcLowPower:       "LOW_POWER",
	GrcIvVersion:      "IVVERSION",
	GrcBattEmpty:      "BATT_EMPTY",
	GrcNoEvent:        "NO_EVENT",
	GrcOutOfTemp:      "OUT_OF_TEMP",
	GrcInstrumentTilt: "INSTRUMENT_TILT",
	GrcComSetting:     "COM_SETTING",
	GrcNoAction:       "NO_ACTION",
	GrcSleepMode:      "SLEEP_MODE",
	GrcNotOK:          "NOTOK",
	GrcNA:             "NA",
	GrcOverflow:       "OVERFLOW",
	GrcStopped:        "STOPPED",

	GrcComEro:                "COM_ERO",
	GrcComCantEncode:         "COM_CANT_ENCODE",
	GrcComCantDecode:         "COM_CANT_DECODE",
	GrcComCantSend:           "COM_CANT_SEND",
	GrcComCantRecv:           "COM_CANT_RECV",
	GrcComTimedOut:           "COM_TIMEDOUT",
	GrcComWrongFormat:        "COM_WRONG_FORMAT",
	GrcComVerMismatch:        "COM_VER_MISMATCH",
	GrcComCantDecodeReq:      "COM_CANT_DECODE_REQ",
	GrcComProcUnavail:        "COM_PROC_UNAVAIL",
	GrcComCantEncodeRep:      "COM_CANT_ENCODE_REP",
	GrcComSystemErr:          "COM_SYSTEM_ERR",
	GrcComFailed:             "COM_FAILED",
	GrcComNoBinary:           "COM_NO_BINARY",
	GrcComIntr:               "COM_INTR",
	GrcComRequires8DBits:     "COM_REQUIRES_8DBITS",
	GrcComTrIDMismatch:       "COM_TR_ID_MISMATCH",
	GrcComNotGeoCom:          "COM_NOT_GEOCOM",
	GrcComUnknownPort:        "COM_UNKNOWN_PORT",
	GrcComEroEnd:             "COM_ERO_END",
	GrcComOverrun:            "COM_OVERRUN",
	GrcComSrvrRxChecksumErrr: "COM_SRVR_RX_CHECKSUM_ERRR",
	GrcComClntRxChecksumErrr: "COM_CLNT_RX_CHECKSUM_ERRR",
	GrcComPortNotAvailable:   "COM_PORT_NOT_AVAILABLE",
	GrcComPortNotOpen:        "COM_PORT_NOT_OPEN",
	GrcComNoPartner:          "COM_NO_PARTNER",
	GrcComEroNotStarted:      "COM_ERO_NOT_STARTED",
	GrcComConsReq:            "COM_CONS_REQ",
	GrcComSrvrIsSleeping:     "COM_SRVR_IS_SLEEPING",
	GrcComSrvrIsOff:          "COM_SRVR_IS_OFF",
	GrcComNoChecksum:         "COM_NO_CHECKSUM",
}

// IsOK reports whether rc signals success.
func (rc ReturnCode) IsOK() bool {
	return rc == GrcOK
}

// IsCom reports whether rc belongs to the communication subsystem range.
func (rc ReturnCode) IsCom() bool {
	return rc >= GrcComEro && rc <= GrcComNoChecksum
}

func (rc ReturnCode) String() string {
	if name, ok := returnCodeNames[rc]; ok {
		return name
	}

	return "GRC(" + strconv.Itoa(int(rc)) + ")"
}
