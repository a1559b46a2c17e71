package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseCronRejectsWrongFieldCount(t *testing.T) {
	_, err := ParseCron("* * *")
	require.Error(t, err)
}

func TestCronMatchesWildcard(t *testing.T) {
	c, err := ParseCron("* * * * *")
	require.NoError(t, err)
	require.True(t, c.Matches(time.Now()))
}

func TestCronMatchesSpecificMinute(t *testing.T) {
	c, err := ParseCron("30 * * * *")
	require.NoError(t, err)

	require.True(t, c.Matches(time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)))
	require.False(t, c.Matches(time.Date(2026, 1, 1, 12, 31, 0, 0, time.UTC)))
}

func TestCronMatchesCommaList(t *testing.T) {
	c, err := ParseCron("0,15,30,45 * * * *")
	require.NoError(t, err)

	require.True(t, c.Matches(time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC)))
	require.True(t, c.Matches(time.Date(2026, 1, 1, 0, 45, 0, 0, time.UTC)))
	require.False(t, c.Matches(time.Date(2026, 1, 1, 0, 20, 0, 0, time.UTC)))
}

func TestCronMatchesHourAndDow(t *testing.T) {
	c, err := ParseCron("0 3 * * 1")
	require.NoError(t, err)

	monday3am := time.Date(2026, 8, 3, 3, 0, 0, 0, time.UTC) // a Monday
	require.Equal(t, time.Monday, monday3am.Weekday())
	require.True(t, c.Matches(monday3am))

	tuesday3am := monday3am.AddDate(0, 0, 1)
	require.False(t, c.Matches(tuesday3am))
}
