package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMacTimeLowRes(t *testing.T) {
	epoch := time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, epoch, MacTimeFromLowRes(0))
	assert.Equal(t, uint32(0), MacTimeToLowRes(epoch))

	ts := time.Date(2023, 5, 17, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, ts, MacTimeFromLowRes(MacTimeToLowRes(ts)))
}

func TestMacTimeHiRes(t *testing.T) {
	testCases := []struct {
		name string
		t    time.Time
	}{
		{"epoch", time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"whole seconds", time.Date(2020, 2, 29, 23, 59, 59, 0, time.UTC)},
		{"half second", time.Date(2020, 2, 29, 23, 59, 59, 500_000_000, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.t, MacTimeFromHiRes(MacTimeToHiRes(tc.t)))
		})
	}

	assert.Equal(t, int64(1)<<16, MacTimeToHiRes(time.Date(1904, 1, 1, 0, 0, 1, 0, time.UTC)))
}

func TestCFTime(t *testing.T) {
	ts := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.0, CFTimeToSeconds(ts))
	ts = time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, ts, CFTimeFromSeconds(CFTimeToSeconds(ts)))
	assert.Equal(t, time.Date(2000, 12, 31, 23, 59, 59, 500_000_000, time.UTC), CFTimeFromSeconds(-0.5))
}
