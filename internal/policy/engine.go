package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/access-policy/internal/model"
	"github.com/jwalitptl/access-policy/pkg/logger"
	"github.com/jwalitptl/access-policy/pkg/metrics"
)

// Mode selects how individual results combine into one decision.
type Mode string

const (
	ModeAll      Mode = "all"
	ModeAny      Mode = "any"
	ModeWeighted Mode = "weighted"
)

// ParseMode accepts a mode name in any case. Empty input yields ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeAny:
		return ModeAny, nil
	case ModeWeighted:
		return ModeWeighted, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrConfiguration, s)
}

// EngineConfig tunes failure handling and bounds of an Engine.
type EngineConfig struct {
	// FailOpen counts rules that fail with an unexpected error or a timeout
	// as passing. Storage failures always count as failing.
	FailOpen bool
	// Timeout bounds a whole Evaluate call. Zero means no bound.
	Timeout time.Duration
	// RuleTimeout bounds each rule. Zero means no bound.
	RuleTimeout time.Duration
	// WeightedThreshold is the share of total weight that must pass in
	// ModeWeighted. Defaults to 0.5.
	WeightedThreshold float64
	// CacheTTL enables caching of error-free rule results per user.
	CacheTTL time.Duration
}

// RuleResult is the outcome of one rule inside a Decision.
type RuleResult struct {
	Policy   string        `json:"policy"`
	Result   Result        `json:"result"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
	Cached   bool          `json:"cached,omitempty"`
}

// Decision is the aggregate outcome of an Evaluate call.
type Decision struct {
	Passed   bool         `json:"passed"`
	Mode     Mode         `json:"mode"`
	Score    float64      `json:"score,omitempty"`
	Messages []Message    `json:"messages,omitempty"`
	Results  []RuleResult `json:"results"`
}

// Failed returns the rule results that did not pass, in evaluation order.
func (d *Decision) Failed() []RuleResult {
	var failed []RuleResult
	for _, r := range d.Results {
		if !r.Result.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Engine evaluates a set of policies against one user. Each rule runs
// behind its own failure boundary; rule side effects are committed by the
// rules themselves and never rolled back.
type Engine struct {
	cfg     EngineConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	cache   *cache.Cache
}

func NewEngine(cfg EngineConfig, log *logger.Logger, m *metrics.Metrics) *Engine {
	if cfg.WeightedThreshold <= 0 {
		cfg.WeightedThreshold = 0.5
	}
	if log == nil {
		log = logger.NewNop()
	}

	e := &Engine{
		cfg:     cfg,
		logger:  log,
		metrics: m,
	}
	if cfg.CacheTTL > 0 {
		e.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return e
}

// Evaluate runs every policy against user in order and combines the results
// under mode. The returned Decision is always complete. The error is non-nil
// only when one or more rules could not persist a mutation; it joins those
// storage errors so the caller can decide whether to retry.
func (e *Engine) Evaluate(ctx context.Context, user *model.User, policies []Policy, mode Mode) (*Decision, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: nil user", ErrSubjectData)
	}
	if mode == "" {
		mode = ModeAll
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"user_id": user.ID.String(),
		"mode":    string(mode),
	})

	results := make([]RuleResult, 0, len(policies))
	var storageErrs []error
	for _, p := range policies {
		rr := e.evaluateRule(ctx, user, p)
		if rr.Err != nil {
			log.ZL.Error().
				Err(rr.Err).
				Str("policy", rr.Policy).
				Str("kind", string(rr.Result.ErrorKind)).
				Msg("Policy evaluation failed")
			e.metrics.PolicyError(rr.Policy, string(rr.Result.ErrorKind))
			if errors.Is(rr.Err, ErrStorage) {
				storageErrs = append(storageErrs, fmt.Errorf("policy %s: %w", rr.Policy, rr.Err))
			}
		}
		e.metrics.ObservePolicy(rr.Policy, rr.Result.Passed, rr.Duration)
		results = append(results, rr)
	}

	decision := aggregate(mode, results, e.cfg.WeightedThreshold, policies)
	e.metrics.Decision(string(mode), decision.Passed)

	log.ZL.Debug().
		Bool("passed", decision.Passed).
		Int("policies", len(policies)).
		Int("failed", len(decision.Failed())).
		Msg("Policy decision")

	return decision, errors.Join(storageErrs...)
}

type outcome struct {
	res Result
	err error
}

func (e *Engine) evaluateRule(ctx context.Context, user *model.User, p Policy) RuleResult {
	start := time.Now()
	name := policyName(p)
	rr := RuleResult{Policy: name}

	var key string
	if e.cache != nil {
		key = cacheKey(p, user)
	}
	if key != "" {
		if v, ok := e.cache.Get(key); ok {
			rr.Result = replayed(v.(Result))
			rr.Cached = true
			rr.Duration = time.Since(start)
			return rr
		}
	}

	if err := ctx.Err(); err != nil {
		rr.Result = FailWithKind(ErrorKindTimeout, NewMessage(MsgPolicyTimeout))
		rr.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
		rr.Duration = time.Since(start)
		e.applyFailOpen(&rr)
		return rr
	}

	res, err := e.run(ctx, user, p)
	rr.Duration = time.Since(start)

	if err != nil {
		rr.Err = err
		if res.ErrorKind == ErrorKindNone {
			res.ErrorKind = classify(err)
		}
		res.Passed = false
		if res.Message == nil {
			res.Message = NewMessage(MsgPolicyError)
		}
	}
	if res.Passed {
		res.Message = nil
	}
	rr.Result = res
	e.applyFailOpen(&rr)

	if key != "" && rr.Err == nil && res.ErrorKind == ErrorKindNone {
		e.cache.SetDefault(key, replayed(res))
	}
	return rr
}

// run executes p on a private copy of user and copies it back once p
// returns, so a rule abandoned on timeout never touches the caller's user.
func (e *Engine) run(ctx context.Context, user *model.User, p Policy) (Result, error) {
	if e.cfg.RuleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RuleTimeout)
		defer cancel()
	}

	subject := *user
	if _, bounded := ctx.Deadline(); !bounded {
		res, err := call(ctx, &subject, p)
		*user = subject
		return res, err
	}

	done := make(chan outcome, 1)
	go func() {
		res, err := call(ctx, &subject, p)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		*user = subject
		return o.res, o.err
	case <-ctx.Done():
		return FailWithKind(ErrorKindTimeout, NewMessage(MsgPolicyTimeout)),
			fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

func call(ctx context.Context, user *model.User, p Policy) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = FailWithKind(ErrorKindInternal, NewMessage(MsgPolicyError))
			err = fmt.Errorf("%w: panic: %v", ErrInternal, r)
		}
	}()
	return p.Evaluate(ctx, user)
}

func (e *Engine) applyFailOpen(rr *RuleResult) {
	if !e.cfg.FailOpen || rr.Err == nil {
		return
	}
	switch rr.Result.ErrorKind {
	case ErrorKindInternal, ErrorKindTimeout:
		rr.Result.Passed = true
		rr.Result.Message = nil
	}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrStorage):
		return ErrorKindStorage
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, ErrSubjectData):
		return ErrorKindSubjectData
	case errors.Is(err, ErrConfiguration):
		return ErrorKindConfiguration
	default:
		return ErrorKindInternal
	}
}

func aggregate(mode Mode, results []RuleResult, threshold float64, policies []Policy) *Decision {
	d := &Decision{Mode: mode, Results: results}

	switch mode {
	case ModeAny:
		d.Passed = len(results) == 0
		for _, r := range results {
			if r.Result.Passed {
				d.Passed = true
				break
			}
		}
	case ModeWeighted:
		var total, passed float64
		for i, r := range results {
			w := weightOf(policies[i])
			total += w
			if r.Result.Passed {
				passed += w
			}
		}
		if total == 0 {
			d.Passed = true
			break
		}
		d.Score = passed / total
		d.Passed = d.Score >= threshold
	default:
		d.Passed = true
		for _, r := range results {
			if !r.Result.Passed {
				d.Passed = false
				break
			}
		}
	}

	if !d.Passed {
		for _, r := range results {
			if !r.Result.Passed && r.Result.Message != nil {
				d.Messages = append(d.Messages, *r.Result.Message)
			}
		}
	}
	return d
}

func policyName(p Policy) (name string) {
	defer func() {
		if recover() != nil {
			name = "unknown"
		}
	}()
	return p.Name()
}

// cacheKey covers the rule configuration and the credential state the
// verdict depends on, so a policy edit or a password reset misses.
func cacheKey(p Policy, user *model.User) (key string) {
	defer func() {
		if recover() != nil {
			key = ""
		}
	}()
	var changed int64
	if user.PasswordChangeDate != nil {
		changed = user.PasswordChangeDate.UnixNano()
	}
	return fmt.Sprintf("%s|%s|%d|%t", fingerprintOf(p), user.ID, changed, user.HasUsablePassword())
}

// replayed copies res for a cache hit. Side effects reported in Data
// happened on the original evaluation only.
func replayed(res Result) Result {
	if res.Data == nil {
		return res
	}
	data := make(map[string]interface{}, len(res.Data))
	for k, v := range res.Data {
		data[k] = v
	}
	if _, ok := data[DataCredentialDisabled]; ok {
		data[DataCredentialDisabled] = false
	}
	res.Data = data
	return res
}

// FlushCache drops every cached rule result.
func (e *Engine) FlushCache() {
	if e.cache != nil {
		e.cache.Flush()
	}
}
