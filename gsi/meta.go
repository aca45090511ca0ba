package gsi

// Parameter indices of the SET and CONF commands.
const (
	ParamBeep                = 30
	ParamIllumination        = 31
	ParamContrast            = 32
	ParamDistanceUnit        = 41
	ParamTemperatureUnit     = 42
	ParamDecimals            = 51
	ParamBaud                = 70
	ParamParity              = 71
	ParamTerminator          = 73
	ParamProtocol            = 75
	ParamRecorder            = 76
	ParamDelay               = 78
	ParamBattery             = 90
	ParamTemperature         = 91
	ParamAutoOff             = 95
	ParamDisplayHeater       = 106
	ParamCurvatureCorrection = 125
	ParamStaffMode           = 127
	ParamFormat              = 137
	ParamCodeRecording       = 138
)

// Word indices of the GET and PUT commands.
const (
	WordPointID         = 11
	WordSerialNumber    = 12
	WordInstrumentType  = 13
	WordFullDate        = 17
	WordDayTime         = 19
	WordDistance        = 32
	WordNote            = 71
	WordTemperature     = 95
	WordReading         = 330
	WordTime            = 560
	WordDate            = 561
	WordYear            = 562
	WordSoftwareVersion = 599
)

var paramDescriptions = map[int]string{
	ParamBeep:                "Beep intensity",
	ParamIllumination:        "Display illumination",
	ParamContrast:            "Display contrast",
	ParamDistanceUnit:        "Distance unit",
	ParamTemperatureUnit:     "Temperature unit",
	ParamDecimals:            "Decimals displayed",
	ParamBaud:                "Serial speed",
	ParamParity:              "Parity",
	ParamTerminator:          "Terminator",
	ParamProtocol:            "Protocol",
	ParamRecorder:            "Recording device",
	ParamDelay:               "Send delay",
	ParamBattery:             "Battery level",
	ParamTemperature:         "Internal temperature",
	ParamAutoOff:             "Auto off",
	ParamDisplayHeater:       "Display heater",
	ParamCurvatureCorrection: "Earth curvature correction",
	ParamStaffMode:           "Staff direction",
	ParamFormat:              "GSI type",
	ParamCodeRecording:       "Code recording mode",
}

var wordDescriptions = map[int]string{
	WordPointID:         "Point ID",
	WordNote:            "Note",
	WordTime:            "Time",
	WordDate:            "Date",
	WordYear:            "Year",
	WordDistance:        "Distance",
	WordReading:         "Reading",
	WordTemperature:     "Internal temperature",
	WordSerialNumber:    "Serial number",
	WordInstrumentType:  "Instrument type",
	WordFullDate:        "Full date",
	WordDayTime:         "Date and time",
	WordSoftwareVersion: "Software version",
}

// ParamDescription returns the description of a parameter index, or "".
func ParamDescription(param int) string {
	return paramDescriptions[param]
}

// WordDescription returns the description of a word index, or "".
func WordDescription(wi int) string {
	return wordDescriptions[wi]
}
