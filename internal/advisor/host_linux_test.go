//go:build linux

package advisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMemAvailable(t *testing.T) {
	meminfo := `MemTotal:       16318480 kB
MemFree:          812344 kB
MemAvailable:    9421100 kB
Buffers:          402100 kB
`
	got, ok := parseMemAvailable(strings.NewReader(meminfo))
	require.True(t, ok)
	require.Equal(t, uint64(9421100*1024), got)

	_, ok = parseMemAvailable(strings.NewReader("MemTotal: 1 kB\n"))
	require.False(t, ok)

	_, ok = parseMemAvailable(strings.NewReader("MemAvailable: lots kB\n"))
	require.False(t, ok)
}

func TestReadHostStats(t *testing.T) {
	stats, err := readHostStats()
	require.NoError(t, err)
	require.Positive(t, stats.CPUs)
	require.GreaterOrEqual(t, stats.FreeMemFrac, 0.0)
	require.LessOrEqual(t, stats.FreeMemFrac, 1.0)
}
