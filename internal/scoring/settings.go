package scoring

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const settingsPrefix = "rule."

// KV persists settings text under a key.
type KV interface {
	GetSetting(ctx context.Context, key string) (value string, found bool, err error)
	SetSetting(ctx context.Context, key, value string) error
}

// MarshalSettings renders every rule as sorted "rule.<id>.enabled=<bool>" and
// "rule.<id>.points=<int>" lines.
func (e *Engine) MarshalSettings() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	lines := make([]string, 0, len(e.rules)*2)
	for _, r := range e.rules {
		lines = append(lines,
			fmt.Sprintf("%s%s.enabled=%t", settingsPrefix, r.ID, r.Enabled),
			fmt.Sprintf("%s%s.points=%d", settingsPrefix, r.ID, r.Points),
		)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n") + "\n"
}

type ruleChange struct {
	enabled *bool
	points  *int
}

// UnmarshalSettings applies settings text. The whole text is validated before anything changes:
// a malformed line or value returns an error and leaves the rules untouched. Blank lines,
// "#" comments, keys outside "rule." and unknown rule ids are skipped.
func (e *Engine) UnmarshalSettings(text string) error {
	changes := make(map[string]*ruleChange)

	sc := bufio.NewScanner(strings.NewReader(text))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return eris.Errorf("scoring: line %d: missing '='", n)
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !strings.HasPrefix(key, settingsPrefix) {
			continue
		}
		rest := strings.TrimPrefix(key, settingsPrefix)
		dot := strings.LastIndex(rest, ".")
		if dot <= 0 {
			return eris.Errorf("scoring: line %d: malformed key %q", n, key)
		}
		id, field := rest[:dot], rest[dot+1:]

		c := changes[id]
		if c == nil {
			c = &ruleChange{}
			changes[id] = c
		}
		switch field {
		case "enabled":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return eris.Wrapf(err, "scoring: line %d: %s", n, key)
			}
			c.enabled = &b
		case "points":
			p, err := strconv.Atoi(val)
			if err != nil {
				return eris.Wrapf(err, "scoring: line %d: %s", n, key)
			}
			c.points = &p
		}
	}
	if err := sc.Err(); err != nil {
		return eris.Wrap(err, "scoring: read settings")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	applied := 0
	for id, c := range changes {
		i, ok := e.index[id]
		if !ok {
			e.log.Debug("skipping settings for unknown rule", zap.String("rule", id))
			continue
		}
		r := &e.rules[i]
		if c.enabled != nil {
			r.Enabled = *c.enabled
		}
		if c.points != nil {
			r.Points = r.bound(*c.points)
		}
		applied++
	}
	e.log.Debug("scoring settings applied", zap.Int("rules", applied))
	return nil
}

// SaveSettings stores the current settings under key.
func (e *Engine) SaveSettings(ctx context.Context, kv KV, key string) error {
	if err := kv.SetSetting(ctx, key, e.MarshalSettings()); err != nil {
		return eris.Wrap(err, "scoring: save settings")
	}
	return nil
}

// LoadSettings applies settings stored under key. A missing key leaves the defaults and
// reports false.
func (e *Engine) LoadSettings(ctx context.Context, kv KV, key string) (bool, error) {
	text, found, err := kv.GetSetting(ctx, key)
	if err != nil {
		return false, eris.Wrap(err, "scoring: load settings")
	}
	if !found {
		return false, nil
	}
	if err := e.UnmarshalSettings(text); err != nil {
		return false, err
	}
	return true, nil
}
