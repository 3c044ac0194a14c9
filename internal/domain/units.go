package domain

// Descriptive metadata per lidar channel and coordinate.
var (
	channelAttrs = map[Channel]Attrs{
		ChannelRWS:        {"long_name": "radial wind speed", "units": "m/s"},
		ChannelDRWS:       {"long_name": "deviation of radial wind speed", "units": "m/s"},
		ChannelCNR:        {"long_name": "carrier to noise ratio", "units": "dB"},
		ChannelConfidence: {"standard_name": "confidence index", "units": "percent"},
		ChannelError:      {"long_name": "mean error"},
		ChannelStatus:     {"long_name": "status", "dtype": "bool"},
	}

	profileAttrs = map[ProfileField]Attrs{
		FieldAzimuth:   {"standard_name": "sensor_azimuth_angle", "units": "degree"},
		FieldElevation: {"long_name": "elevation", "units": "degree"},
	}

	timeAttrs      = Attrs{"standard_name": "time"}
	rangeAttrs     = Attrs{"standard_name": "height", "units": "m"}
	windspeedAttrs = Attrs{"long_name": "wind speed", "units": "m/s"}
)
