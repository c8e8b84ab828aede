package policy

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jwalitptl/access-policy/internal/model"
	"github.com/jwalitptl/access-policy/internal/repository"
)

const day = 24 * time.Hour

// PasswordExpiryConfig configures a PasswordExpiryPolicy.
type PasswordExpiryConfig struct {
	Name string
	// Days is the maximum password age. Must be positive.
	Days int
	// DenyOnly reports expiry without disabling the credential.
	DenyOnly bool
	Weight   float64
}

// DataCredentialDisabled is set in Result.Data when the evaluation itself
// made the credential unusable.
const DataCredentialDisabled = "credential_disabled"

// PasswordExpiryPolicy fails users whose password is Days or more days old
// and, unless DenyOnly is set, makes their credential unusable.
type PasswordExpiryPolicy struct {
	cfg   PasswordExpiryConfig
	users repository.UserRepository
	now   func() time.Time
}

// Option customizes a PasswordExpiryPolicy.
type Option func(*PasswordExpiryPolicy)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *PasswordExpiryPolicy) {
		p.now = now
	}
}

func NewPasswordExpiryPolicy(cfg PasswordExpiryConfig, users repository.UserRepository, opts ...Option) (*PasswordExpiryPolicy, error) {
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrConfiguration, cfg.Days)
	}
	if cfg.Weight < 0 {
		return nil, fmt.Errorf("%w: weight must not be negative", ErrConfiguration)
	}
	if !cfg.DenyOnly && users == nil {
		return nil, fmt.Errorf("%w: a user repository is required to disable credentials", ErrConfiguration)
	}
	if cfg.Name == "" {
		cfg.Name = model.PolicyKindPasswordExpiry
	}

	p := &PasswordExpiryPolicy{
		cfg:   cfg,
		users: users,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *PasswordExpiryPolicy) Name() string {
	return p.cfg.Name
}

func (p *PasswordExpiryPolicy) Weight() float64 {
	if p.cfg.Weight == 0 {
		return 1
	}
	return p.cfg.Weight
}

// Fingerprint identifies the configuration of p for result caching.
func (p *PasswordExpiryPolicy) Fingerprint() string {
	return fmt.Sprintf("%s/days=%d/deny_only=%t/weight=%g", p.cfg.Name, p.cfg.Days, p.cfg.DenyOnly, p.cfg.Weight)
}

func (p *PasswordExpiryPolicy) Evaluate(ctx context.Context, user *model.User) (Result, error) {
	if user.PasswordChangeDate == nil || user.PasswordChangeDate.IsZero() {
		return FailWithKind(ErrorKindSubjectData, NewMessage(MsgPasswordNoChangeDate)), nil
	}

	now := p.now()
	changed := *user.PasswordChangeDate
	actualDays := floorDays(now.Sub(changed))
	if actualDays < p.cfg.Days {
		return Pass(), nil
	}

	daysSinceExpiry := floorDays(now.Sub(changed.Add(time.Duration(p.cfg.Days) * day)))
	data := map[string]interface{}{
		"actual_days":          actualDays,
		"days_since_expiry":    daysSinceExpiry,
		DataCredentialDisabled: false,
	}

	if p.cfg.DenyOnly {
		return Fail(NewMessage(MsgPasswordExpired)).WithData(data), nil
	}

	previous := user.PasswordHash
	if user.SetUnusablePassword() {
		if err := p.users.Save(ctx, user); err != nil {
			user.PasswordHash = previous
			return FailWithKind(ErrorKindStorage, NewMessage(MsgPolicyError)).WithData(data),
				fmt.Errorf("%w: disable credential of user %s: %w", ErrStorage, user.ID, err)
		}
		data[DataCredentialDisabled] = true
	}

	return Fail(NewMessage(MsgPasswordExpiredDaysAgo, strconv.Itoa(daysSinceExpiry))).WithData(data), nil
}

// floorDays converts d to whole days, rounding towards negative infinity.
func floorDays(d time.Duration) int {
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}
	return int(days)
}
