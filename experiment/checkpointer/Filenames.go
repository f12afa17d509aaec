package checkpointer

import (
	"fmt"
	"time"
)

// FilenameEnumerator returns a naming function for checkpoints which
// numbers files consecutively starting after start:
//
//	name := FilenameEnumerator(0, "runs/agent", ".bin")
//	name() // runs/agent-1.bin
//	name() // runs/agent-2.bin
func FilenameEnumerator(start int, filename, extension string) func() string {
	i := start
	return func() string {
		i++
		return fmt.Sprintf("%v-%d%v", filename, i, extension)
	}
}

// FileTimer returns a naming function for checkpoints which suffixes
// filename with the current UTC time, to nanosecond resolution
func FileTimer(filename, extension string) func() string {
	return func() string {
		stamp := time.Now().UTC().Format("20060102T150405.000000000")
		return fmt.Sprintf("%v-%v%v", filename, stamp, extension)
	}
}
