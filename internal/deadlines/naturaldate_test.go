package deadlines

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDueDateResolvesRelativeDuration(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	got, err := ParseDueDate("in 3 days", base)
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 3).Day(), got.Day())
}

func TestParseDueDateRejectsUnparseableInput(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	_, err := ParseDueDate("asdfghjkl not a date", base)
	assert.Error(t, err)
}
