package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var tasks []Task
	err := json.Unmarshal([]byte(`[{"id":3,"title":"A"},{"id":"64b1f0","title":"B"},{"id":null,"title":"C"}]`), &tasks)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, ID("3"), tasks[0].ID)
	assert.Equal(t, ID("64b1f0"), tasks[1].ID)
	assert.True(t, tasks[2].ID.IsZero())
}

func TestIDMarshalKeepsNumericForm(t *testing.T) {
	data, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{A: "12", B: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12,"b":"abc"}`, string(data))
}

func TestTimestampLayouts(t *testing.T) {
	cases := map[string]string{
		`"2025-03-01T10:30:00Z"`:          "2025-03-01",
		`"2025-03-01T10:30:00.123456"`:    "2025-03-01",
		`"2025-03-01T10:30:00"`:           "2025-03-01",
		`"2025-03-01"`:                    "2025-03-01",
		`"Sat, 01 Mar 2025 10:30:00 GMT"`: "2025-03-01",
	}
	for raw, want := range cases {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
		assert.Equal(t, want, ts.Date(), raw)
	}

	var empty Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.IsZero())
}

func TestTaskOverdue(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	past := NewTimestamp(now.Add(-24 * time.Hour))

	assert.True(t, Task{Status: StatusPending, Deadline: past}.Overdue(now))
	assert.False(t, Task{Status: StatusCompleted, Deadline: past}.Overdue(now))
	assert.False(t, Task{Status: StatusPending}.Overdue(now))
	assert.False(t, Task{Status: StatusPending, Deadline: NewTimestamp(now.Add(time.Hour))}.Overdue(now))
}

func TestStatusPatchOnlySerializesStatus(t *testing.T) {
	data, err := json.Marshal(StatusPatch(StatusCompleted))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"completed"}`, string(data))
}

func TestMeetingDuration(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	m := Meeting{StartTime: NewTimestamp(start), EndTime: NewTimestamp(start.Add(45 * time.Minute))}
	assert.Equal(t, 45*time.Minute, m.Duration())
	assert.Equal(t, MeetingPending, Meeting{}.Status())
}
