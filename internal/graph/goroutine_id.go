// SPDX-License-Identifier: MIT
package graph

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentGoroutineID extracts the calling goroutine's numeric id by
// parsing the header line of runtime.Stack's output ("goroutine 123
// [running]:"). Go deliberately does not expose goroutine ids through a
// supported API; this is the standard workaround used by a handful of
// debugging and tracing libraries when a piece of code genuinely needs to
// know "is this the same goroutine as last time" rather than just "is
// this safe to call concurrently".
//
// It is called per control-plane command, not per sample: once by each
// ExecuteOrPost after the render goroutine has been pinned, and once by
// the first ProcessBlock to pin it. Both are far off the audio hot path.
func currentGoroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]

	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}

	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
