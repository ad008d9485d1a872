package timefmt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nautilusim/nautilus/internal/util/timefmt"
)

func TestFormat_UTC(t *testing.T) {
	ts := time.Date(2009, 6, 15, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, "2009-06-15T10:30:45Z", timefmt.Format(ts))
}

func TestFormat_NonUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 2009-06-15 19:30:45 UTC+9 == 2009-06-15 10:30:45 UTC
	ts := time.Date(2009, 6, 15, 19, 30, 45, 0, loc)
	assert.Equal(t, "2009-06-15T10:30:45Z", timefmt.Format(ts))
}

func TestFormat_TruncatesSubsecond(t *testing.T) {
	ts := time.Date(2009, 1, 1, 0, 0, 0, 999999999, time.UTC)
	assert.Equal(t, "2009-01-01T00:00:00Z", timefmt.Format(ts))
}

func TestParseRoundTrip(t *testing.T) {
	ts := time.Date(2009, 6, 15, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, ts, timefmt.Parse(timefmt.Format(ts)))
}

func TestParseMalformed(t *testing.T) {
	assert.True(t, timefmt.Parse("not a time").IsZero())
	assert.True(t, timefmt.Parse("").IsZero())
}
