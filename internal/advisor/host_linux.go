//go:build linux

package advisor

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// loadShift is SI_LOAD_SHIFT from <linux/kernel.h>.
const loadShift = 1 << 16

const meminfoPath = "/proc/meminfo"

func readHostStats() (HostStats, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return HostStats{}, err
	}

	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	total := uint64(info.Totalram) * unit
	// Freeram leaves out page cache; MemAvailable is what the kernel would
	// hand out without swapping.
	free := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit
	if f, err := os.Open(meminfoPath); err == nil {
		if avail, ok := parseMemAvailable(f); ok {
			free = avail
		}
		f.Close()
	}

	stats := HostStats{
		Load1: float64(info.Loads[0]) / loadShift,
		CPUs:  runtime.NumCPU(),
	}
	if total > 0 {
		stats.FreeMemFrac = min(float64(free)/float64(total), 1)
	}
	return stats, nil
}

// parseMemAvailable returns the MemAvailable line of /proc/meminfo in bytes.
func parseMemAvailable(r io.Reader) (uint64, bool) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != "MemAvailable:" {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb * 1024, true
	}
	return 0, false
}
