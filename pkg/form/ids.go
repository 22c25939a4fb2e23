package form

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces field ids for ADD_FIELD. Every caller in a process is
// expected to use one generator so ids stay unique.
type IDGenerator func() string

// NewFieldID returns a timestamp-prefixed id with a random suffix, for example
// "field-1718031234567-3f2a9c1b".
func NewFieldID() string {
	return newFieldID(time.Now(), uuid.New())
}

func newFieldID(now time.Time, id uuid.UUID) string {
	suffix := strings.ReplaceAll(id.String(), "-", "")[:8]
	return "field-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}
