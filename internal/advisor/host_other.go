//go:build !linux

package advisor

import "errors"

var errHostStatsUnsupported = errors.New("host stats not supported on this platform")

func readHostStats() (HostStats, error) {
	return HostStats{}, errHostStatsUnsupported
}
