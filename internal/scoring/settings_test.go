package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	data map[string]string
	err  error
}

func (m *memKV) GetSetting(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) SetSetting(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

// ruleState drops predicates so rule sets can be compared.
func ruleState(e *Engine) []Rule {
	rules := e.Rules()
	for i := range rules {
		rules[i].match = nil
	}
	return rules
}

func TestMarshalSettings(t *testing.T) {
	e := New()
	_, err := e.SetPoints(RuleEventSpace, 12)
	require.NoError(t, err)
	require.NoError(t, e.SetEnabled(RuleMissingContact, false))

	text := e.MarshalSettings()
	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Len(t, lines, 18)
	assert.True(t, strings.HasPrefix(lines[0], "rule.bureau_accredited."))
	assert.Contains(t, text, "rule.event_space.points=12\n")
	assert.Contains(t, text, "rule.missing_contact.enabled=false\n")
	assert.Contains(t, text, "rule.missing_address.points=-10\n")
}

func TestSettingsRoundTrip(t *testing.T) {
	src := New()
	_, _ = src.SetPoints(RuleLargeEmployer, 15)
	_, _ = src.SetPoints(RuleMissingAddress, -20)
	_ = src.SetEnabled(RuleHighRating, false)

	dst := New()
	require.NoError(t, dst.UnmarshalSettings(src.MarshalSettings()))
	assert.Equal(t, ruleState(src), ruleState(dst))
}

func TestUnmarshalSettings_SkipsCommentsAndUnknown(t *testing.T) {
	e := New()
	text := `
# scoring
rule.unknown_rule.points=4
other.key=1
rule.event_space.points = 9
rule.event_space.color=blue
rule.high_rating.enabled=false
`
	require.NoError(t, e.UnmarshalSettings(text))
	r, _ := e.Rule(RuleEventSpace)
	assert.Equal(t, 9, r.Points)
	r, _ = e.Rule(RuleHighRating)
	assert.False(t, r.Enabled)
}

func TestUnmarshalSettings_ClampsPoints(t *testing.T) {
	e := New()
	require.NoError(t, e.UnmarshalSettings("rule.verified_business.points=100\n"))
	r, _ := e.Rule(RuleVerifiedBusiness)
	assert.Equal(t, 15, r.Points)
}

func TestUnmarshalSettings_MalformedIsAtomic(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bad int", "rule.event_space.points=12\nrule.high_rating.points=lots\n"},
		{"bad bool", "rule.event_space.points=12\nrule.high_rating.enabled=maybe\n"},
		{"missing equals", "rule.event_space.points=12\nrule.high_rating.enabled\n"},
		{"malformed key", "rule.event_space.points=12\nrule.points=3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New()
			before := ruleState(e)
			require.Error(t, e.UnmarshalSettings(tt.text))
			assert.Equal(t, before, ruleState(e))
		})
	}
}

func TestSaveLoadSettings(t *testing.T) {
	ctx := context.Background()
	kv := &memKV{}

	e := New()
	found, err := e.LoadSettings(ctx, kv, "scoring.rules")
	require.NoError(t, err)
	assert.False(t, found)

	_, _ = e.SetPoints(RuleConferenceRoom, 11)
	require.NoError(t, e.SaveSettings(ctx, kv, "scoring.rules"))

	other := New()
	found, err = other.LoadSettings(ctx, kv, "scoring.rules")
	require.NoError(t, err)
	assert.True(t, found)
	r, _ := other.Rule(RuleConferenceRoom)
	assert.Equal(t, 11, r.Points)
}

func TestSaveLoadSettings_Errors(t *testing.T) {
	ctx := context.Background()
	kv := &memKV{err: errors.New("disk full")}
	e := New()

	require.Error(t, e.SaveSettings(ctx, kv, "k"))
	_, err := e.LoadSettings(ctx, kv, "k")
	require.Error(t, err)

	bad := &memKV{data: map[string]string{"k": "rule.event_space.points=x"}}
	found, err := e.LoadSettings(ctx, bad, "k")
	require.Error(t, err)
	assert.False(t, found)
}
