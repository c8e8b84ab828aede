package policy

import (
	"context"

	"github.com/jwalitptl/access-policy/internal/model"
)

// Policy is one independently authored rule.
//
// Evaluate reports expected domain failures (a missing field, an expired
// credential) as a failing Result and a nil error. A non-nil error is
// reserved for faults the rule cannot handle itself, such as the subject
// store being unavailable.
type Policy interface {
	Name() string
	Evaluate(ctx context.Context, user *model.User) (Result, error)
}

// Weighted is implemented by policies that carry a weight for ModeWeighted.
// Policies without it weigh 1.
type Weighted interface {
	Weight() float64
}

// Fingerprinter is implemented by policies whose verdict depends on
// configuration beyond their name. Engine caches results per fingerprint.
type Fingerprinter interface {
	Fingerprint() string
}

type negated struct {
	Policy
}

// Negate inverts the verdict of p. Results with an ErrorKind, and errors,
// pass through unchanged so a broken rule never turns into a grant.
func Negate(p Policy) Policy {
	return &negated{Policy: p}
}

func (n *negated) Evaluate(ctx context.Context, user *model.User) (Result, error) {
	res, err := n.Policy.Evaluate(ctx, user)
	if err != nil || res.ErrorKind != ErrorKindNone {
		return res, err
	}
	if res.Passed {
		return Fail(NewMessage(MsgPolicyNegated, n.Name())).WithData(res.Data), nil
	}
	return Pass().WithData(res.Data), nil
}

func (n *negated) Weight() float64 {
	return weightOf(n.Policy)
}

func (n *negated) Fingerprint() string {
	return "not(" + fingerprintOf(n.Policy) + ")"
}

func fingerprintOf(p Policy) string {
	if f, ok := p.(Fingerprinter); ok {
		return f.Fingerprint()
	}
	return p.Name()
}

func weightOf(p Policy) float64 {
	if w, ok := p.(Weighted); ok {
		return w.Weight()
	}
	return 1
}
