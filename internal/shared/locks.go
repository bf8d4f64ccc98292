package shared

import (
	"fmt"
	"hash/fnv"
)

// NumberingLockKey builds the advisory lock key serialising document number
// generation for one (document kind, year) pair. The scan-then-increment in
// the numbering path is not safe under concurrent creation without it.
func NumberingLockKey(kind string, year int) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "cashdesk:numbering:%s:%d", kind, year)
	return int64(h.Sum64())
}
