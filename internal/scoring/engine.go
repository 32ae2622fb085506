package scoring

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

var (
	// ErrUnknownRule is returned for a rule id the engine does not have.
	ErrUnknownRule = eris.New("scoring: unknown rule")
	// ErrNilBusiness is returned when scoring a nil record.
	ErrNilBusiness = eris.New("scoring: nil business record")
)

// Result is the outcome of scoring one business.
type Result struct {
	Base      int                      `json:"base"`
	Raw       int                      `json:"raw"` // base plus all matched points, before clamping
	Final     int                      `json:"final"`
	Breakdown []model.RuleContribution `json:"breakdown"`
}

// Engine owns the rule set. Scoring takes a read lock; rule edits take the write lock.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
	index map[string]int
	log   *zap.Logger
}

// New creates an engine with the default rules.
func New() *Engine {
	e := &Engine{
		rules: DefaultRules(),
		log:   zap.L().With(zap.String("component", "scoring")),
	}
	e.index = make(map[string]int, len(e.rules))
	for i, r := range e.rules {
		e.index[r.ID] = i
	}
	return e
}

// CalculateScore sums the points of every enabled rule matching b onto base and clamps the
// total to [0,100] once at the end, so rule order never changes the result.
func (e *Engine) CalculateScore(b *model.BusinessRecord, base int) (*Result, error) {
	if b == nil {
		return nil, ErrNilBusiness
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	res := &Result{Base: base, Raw: base}
	for _, r := range e.rules {
		if !r.Enabled || !r.Matches(b) {
			continue
		}
		res.Raw += r.Points
		res.Breakdown = append(res.Breakdown, model.RuleContribution{
			RuleID: r.ID,
			Name:   r.Name,
			Points: r.Points,
		})
	}
	res.Final = clampScore(res.Raw)
	return res, nil
}

// Apply scores b against its own BaseScore.
func (e *Engine) Apply(b *model.BusinessRecord) (*Result, error) {
	if b == nil {
		return nil, ErrNilBusiness
	}
	return e.CalculateScore(b, b.BaseScore)
}

func clampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// Rules returns a copy of the rule set in evaluation order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Rule(nil), e.rules...)
}

// Rule returns a copy of one rule.
func (e *Engine) Rule(id string) (Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.index[id]
	if !ok {
		return Rule{}, eris.Wrapf(ErrUnknownRule, "rule %q", id)
	}
	return e.rules[i], nil
}

// SetPoints sets a rule's point delta, clamped into the rule's bounds. It returns the stored value.
func (e *Engine) SetPoints(id string, points int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return 0, eris.Wrapf(ErrUnknownRule, "rule %q", id)
	}
	r := &e.rules[i]
	r.Points = r.bound(points)
	if r.Points != points {
		e.log.Warn("rule points clamped",
			zap.String("rule", id), zap.Int("requested", points), zap.Int("stored", r.Points))
	}
	return r.Points, nil
}

// SetEnabled turns a rule on or off.
func (e *Engine) SetEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return eris.Wrapf(ErrUnknownRule, "rule %q", id)
	}
	e.rules[i].Enabled = enabled
	return nil
}

// ResetRule restores one rule's default points and enables it.
func (e *Engine) ResetRule(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return eris.Wrapf(ErrUnknownRule, "rule %q", id)
	}
	e.rules[i].Points = e.rules[i].Default
	e.rules[i].Enabled = true
	return nil
}

// ResetAll restores every rule to its factory state.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rules {
		e.rules[i].Points = e.rules[i].Default
		e.rules[i].Enabled = true
	}
	e.log.Info("scoring rules reset to defaults")
}
