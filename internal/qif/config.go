package qif

// ReadDateFormatMode selects where date parse patterns come from.
type ReadDateFormatMode int

const (
	// AmbientCulture uses the short date patterns of the effective locale.
	AmbientCulture ReadDateFormatMode = iota
	// Custom uses CustomReadDateFormat.
	Custom
)

func (m ReadDateFormatMode) String() string {
	switch m {
	case AmbientCulture:
		return "ambient"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Configuration controls how dates and amounts are read. The zero value reads
// with the ambient locale of the host.
type Configuration struct {
	ReadDateFormatMode ReadDateFormatMode
	// CustomReadDateFormat is required when ReadDateFormatMode is Custom.
	// Tokens are d, dd, M, MM, yy and yyyy, plus MMM and MMMM for English
	// month names ("Jan", "January", any case). Spaces are ignored when
	// matching and anything else is a literal.
	CustomReadDateFormat string
	// CustomReadCultureInfo is a locale identifier such as "en-US". When set
	// it replaces the ambient locale for both dates and amounts.
	CustomReadCultureInfo string
}

// RoundTripConfiguration reads exactly what Export writes, whatever the
// host locale is.
func RoundTripConfiguration() Configuration {
	return Configuration{
		ReadDateFormatMode:    Custom,
		CustomReadDateFormat:  CanonicalDateFormat,
		CustomReadCultureInfo: InvariantLocale,
	}
}
