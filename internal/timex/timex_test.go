package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: `"8s"`, want: 8 * time.Second},
		{name: "nanoseconds", in: `1000000000`, want: time.Second},
		{name: "bad string", in: `"eight"`, wantErr: true},
		{name: "bool", in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestParseTimestamp_Layouts(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	for _, s := range []string{
		"2024-01-15T10:30:00Z",
		"2024-01-15 10:30:00",
		"2024-01-15 10:30:00+00:00",
		"2024-01-15T10:30:00",
	} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	_, err := ParseTimestamp("yesterday")
	require.Error(t, err)
}

func TestTimestamp_Scan(t *testing.T) {
	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.FixedZone("KST", 9*3600))

	var ts Timestamp
	require.NoError(t, ts.Scan(now))
	assert.True(t, ts.Valid)
	assert.Equal(t, time.UTC, ts.Time.Location())
	assert.True(t, now.Equal(ts.Time))

	require.NoError(t, ts.Scan([]byte("2024-02-01 00:00:00")))
	assert.True(t, ts.Valid)

	require.NoError(t, ts.Scan(nil))
	assert.False(t, ts.Valid)

	require.NoError(t, ts.Scan(""))
	assert.False(t, ts.Valid)

	require.Error(t, ts.Scan(42))
}
