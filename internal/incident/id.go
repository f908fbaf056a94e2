package incident

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newID builds a human-presentable identifier: prefix, a base36 creation
// time token and a random suffix, upper-cased. Uniqueness comes from the
// random suffix; the time token keeps ids roughly sortable for humans.
func newID(prefix string) string {
	ts := strconv.FormatInt(time.Now().UTC().UnixMilli(), 36)
	suffix, _, _ := strings.Cut(uuid.NewString(), "-")
	return strings.ToUpper(prefix + "-" + ts + "-" + suffix)
}

func newIncidentID() string { return newID("INC") }

func newEventID() string { return newID("EVT") }
