package incident

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	id := newID("INC")
	assert.True(t, strings.HasPrefix(id, "INC-"))
	assert.Equal(t, id, strings.ToUpper(id))

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newEventID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
