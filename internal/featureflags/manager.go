// Package featureflags evaluates rollout flags configured as a comma-separated
// key=value list, e.g.
//
//	FEATURE_FLAGS="follower_notifications=on,pdf_unicode=25%,recipe_feed=users:3|17"
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// rule is one parsed flag value. A user is enabled when listed in users or
// when their rollout bucket falls below percent.
type rule struct {
	raw     string
	percent int
	users   map[uint]struct{}
}

// Manager holds the parsed flags. A nil Manager reports every flag disabled.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Entries without "=" or with an empty side are skipped;
// values that do not parse evaluate to off.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			continue
		}
		rules[key] = parseRule(value)
	}
	return &Manager{rules: rules}
}

// parseRule accepts on/true/1, off/false/0, N% and users:<id>|<id>.
func parseRule(value string) rule {
	r := rule{raw: value}
	switch value {
	case "on", "true", "1":
		r.percent = 100
		return r
	case "off", "false", "0":
		return r
	}

	if ids, ok := strings.CutPrefix(value, "users:"); ok {
		r.users = make(map[uint]struct{})
		for _, part := range strings.Split(ids, "|") {
			if id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32); err == nil && id > 0 {
				r.users[uint(id)] = struct{}{}
			}
		}
		return r
	}

	if pct, ok := strings.CutSuffix(value, "%"); ok {
		if n, err := strconv.Atoi(pct); err == nil {
			r.percent = min(max(n, 0), 100)
		}
	}
	return r
}

// Enabled reports whether name is on for userID. Partial rollouts and user
// lists never match anonymous callers (userID 0).
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case userID == 0:
		return false
	case r.users != nil:
		_, listed := r.users[userID]
		return listed
	case r.percent <= 0:
		return false
	}
	return rolloutBucket(name, userID) < r.percent
}

// Names returns the configured flag names, sorted.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.rules))
	for name := range m.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw returns the configured value of every flag.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// rolloutBucket places userID in [0, 100) for name, stable across restarts.
func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
