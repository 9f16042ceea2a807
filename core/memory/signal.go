package memory

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Signal reports memory available to the process at call time. It is
// injected rather than read as a singleton so the profiler's
// re-query-per-job invariant stays enforceable in tests.
type Signal interface {
	CurrentAvailableBytes() (int64, error)
}

// SystemSignal reads available memory from /proc/meminfo.
type SystemSignal struct {
	meminfoPath string
}

// NewSystemSignal creates a new system memory signal
func NewSystemSignal() *SystemSignal {
	return &SystemSignal{meminfoPath: "/proc/meminfo"}
}

// CurrentAvailableBytes returns the kernel's MemAvailable estimate.
func (s *SystemSignal) CurrentAvailableBytes() (int64, error) {
	f, err := os.Open(s.meminfoPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse MemAvailable: %w", err)
		}
		return kb * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("MemAvailable not found in %s", s.meminfoPath)
}

// StaticSignal always reports the same value. Used in tests and dry runs.
type StaticSignal struct {
	Bytes int64
}

// CurrentAvailableBytes returns the configured value.
func (s *StaticSignal) CurrentAvailableBytes() (int64, error) {
	return s.Bytes, nil
}
