package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled(t *testing.T) {
	m := NewManager("follower_notifications=on,pdf_unicode=off,legacy=true,beta=0,full=100%,none=0%,testers=users:3|17|x")

	tests := []struct {
		flag   string
		userID uint
		want   bool
	}{
		{"follower_notifications", 1, true},
		{"follower_notifications", 0, true},
		{"FOLLOWER_NOTIFICATIONS ", 1, true},
		{"pdf_unicode", 1, false},
		{"legacy", 9, true},
		{"beta", 9, false},
		{"full", 0, true},
		{"none", 5, false},
		{"testers", 3, true},
		{"testers", 17, true},
		{"testers", 4, false},
		{"testers", 0, false},
		{"unknown", 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Enabled(tt.flag, tt.userID), "%s for user %d", tt.flag, tt.userID)
	}
}

func TestPercentRollout(t *testing.T) {
	m := NewManager("canary=25%")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be stable per user")
	}
	assert.False(t, m.Enabled("canary", 0))

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 80)
}

func TestParseRawAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,=on,w= ,q=150%")

	raw := m.Raw()
	require.Len(t, raw, 4)
	assert.Equal(t, map[string]string{"x": "on", "y": "20%", "z": "off", "q": "150%"}, raw)
	assert.Equal(t, []string{"q", "x", "y", "z"}, m.Names())

	snap := m.Snapshot(123)
	require.Len(t, snap, 4)
	assert.True(t, snap["x"])
	assert.True(t, snap["q"], "percentages are clamped to 100")
	assert.False(t, snap["z"])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled("x", 1))
	assert.Empty(t, m.Raw())
	assert.Empty(t, m.Snapshot(1))
	assert.Nil(t, m.Names())
}
