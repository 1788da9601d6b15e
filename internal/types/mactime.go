package types

import (
	"math"
	"time"
)

const (
	// macEpochUnix is 1904-01-01T00:00:00Z in Unix seconds
	macEpochUnix int64 = -2082844800
	// cfEpochUnix is 2001-01-01T00:00:00Z in Unix seconds
	cfEpochUnix int64 = 978307200
)

// MacTimeFromLowRes converts whole seconds since 1904
func MacTimeFromLowRes(v uint32) time.Time {
	return time.Unix(int64(v)+macEpochUnix, 0).UTC()
}

// MacTimeToLowRes converts to whole seconds since 1904, clamped to the uint32 range
func MacTimeToLowRes(t time.Time) uint32 {
	secs := t.Unix() - macEpochUnix
	switch {
	case secs < 0:
		return 0
	case secs > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(secs)
}

// MacTimeFromHiRes converts 1/65536 second units since 1904
func MacTimeFromHiRes(v int64) time.Time {
	secs := v >> 16
	frac := v & 0xffff
	return time.Unix(secs+macEpochUnix, frac*int64(time.Second)/65536).UTC()
}

// MacTimeToHiRes converts to 1/65536 second units since 1904
func MacTimeToHiRes(t time.Time) int64 {
	secs := t.Unix() - macEpochUnix
	frac := int64(t.Nanosecond()) * 65536 / int64(time.Second)
	return secs<<16 | frac
}

// CFTimeFromSeconds converts seconds since 2001 as used by Core Foundation
func CFTimeFromSeconds(v float64) time.Time {
	secs, frac := math.Modf(v)
	if frac < 0 {
		secs--
		frac++
	}
	return time.Unix(int64(secs)+cfEpochUnix, int64(math.Round(frac*1e9))).UTC()
}

// CFTimeToSeconds converts to seconds since 2001 as used by Core Foundation
func CFTimeToSeconds(t time.Time) float64 {
	return float64(t.Unix()-cfEpochUnix) + float64(t.Nanosecond())/1e9
}
