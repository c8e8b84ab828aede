package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/access-policy/internal/model"
	"github.com/jwalitptl/access-policy/internal/policy"
	"github.com/jwalitptl/access-policy/internal/repository"
	"github.com/jwalitptl/access-policy/internal/service/audit"
	apperrors "github.com/jwalitptl/access-policy/pkg/errors"
	"github.com/jwalitptl/access-policy/pkg/logger"
	"github.com/jwalitptl/access-policy/pkg/messaging"
	"github.com/jwalitptl/access-policy/pkg/metrics"
	"github.com/jwalitptl/access-policy/pkg/validator"
)

// ErrNegateRequiresDenyOnly rejects a negated rule that would still disable
// credentials while its inverted verdict passes.
var ErrNegateRequiresDenyOnly = errors.New("negate requires deny_only")

type PolicyServicer interface {
	EvaluateUser(ctx context.Context, userID uuid.UUID, mode policy.Mode) (*policy.Decision, error)
	CreatePolicy(ctx context.Context, req *model.CreatePasswordExpiryPolicyRequest) (*model.PasswordExpiryPolicy, error)
	GetPolicy(ctx context.Context, id uuid.UUID) (*model.PasswordExpiryPolicy, error)
	UpdatePolicy(ctx context.Context, id uuid.UUID, req *model.UpdatePasswordExpiryPolicyRequest) (*model.PasswordExpiryPolicy, error)
	DeletePolicy(ctx context.Context, id uuid.UUID) error
	ListPolicies(ctx context.Context) ([]*model.PasswordExpiryPolicy, error)
}

// Config holds service level defaults.
type Config struct {
	// DefaultMode applies when EvaluateUser is called without a mode.
	DefaultMode policy.Mode
}

type Service struct {
	cfg       Config
	policies  repository.PolicyRepository
	users     repository.UserRepository
	engine    *policy.Engine
	auditor   *audit.Service
	publisher messaging.Publisher
	validator validator.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(
	cfg Config,
	policies repository.PolicyRepository,
	users repository.UserRepository,
	engine *policy.Engine,
	auditor *audit.Service,
	publisher messaging.Publisher,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = policy.ModeAll
	}
	if publisher == nil {
		publisher = messaging.NopBroker{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		cfg:       cfg,
		policies:  policies,
		users:     users,
		engine:    engine,
		auditor:   auditor,
		publisher: publisher,
		validator: validator.New(),
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

// EvaluateUser runs every enabled policy against the user. A storage failure
// while disabling a credential is returned together with the full decision.
func (s *Service) EvaluateUser(ctx context.Context, userID uuid.UUID, mode policy.Mode) (*policy.Decision, error) {
	if mode == "" {
		mode = s.cfg.DefaultMode
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Storage(fmt.Errorf("failed to load user: %w", err))
	}

	configs, err := s.policies.ListEnabled(ctx)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to load policies: %w", err))
	}

	rules, err := s.buildPolicies(configs)
	if err != nil {
		return nil, err
	}

	decision, evalErr := s.engine.Evaluate(ctx, user, rules, mode)
	if decision == nil {
		return nil, apperrors.Internal(evalErr)
	}

	s.recordEvaluation(ctx, user, decision)
	s.publishEvents(ctx, user, decision)

	if evalErr != nil {
		return decision, apperrors.Storage(evalErr)
	}
	return decision, nil
}

func (s *Service) buildPolicies(configs []*model.PasswordExpiryPolicy) ([]policy.Policy, error) {
	rules := make([]policy.Policy, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Negate && !cfg.DenyOnly {
			return nil, apperrors.Configuration(fmt.Sprintf("policy %s is misconfigured", cfg.Name),
				fmt.Errorf("%w: %w", policy.ErrConfiguration, ErrNegateRequiresDenyOnly))
		}
		p, err := policy.NewPasswordExpiryPolicy(policy.PasswordExpiryConfig{
			Name:     cfg.Name,
			Days:     cfg.Days,
			DenyOnly: cfg.DenyOnly,
			Weight:   cfg.Weight,
		}, s.users)
		if err != nil {
			return nil, apperrors.Configuration(fmt.Sprintf("policy %s is misconfigured", cfg.Name), err)
		}

		var rule policy.Policy = p
		if cfg.Negate {
			rule = policy.Negate(rule)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

type ruleAudit struct {
	Policy     string                 `json:"policy"`
	Passed     bool                   `json:"passed"`
	ErrorKind  policy.ErrorKind       `json:"error_kind,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    *policy.Message        `json:"message,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	DurationMS int64                  `json:"duration_ms"`
	Cached     bool                   `json:"cached,omitempty"`
}

func (s *Service) recordEvaluation(ctx context.Context, user *model.User, decision *policy.Decision) {
	if s.auditor == nil {
		return
	}

	rules := make([]ruleAudit, 0, len(decision.Results))
	for _, rr := range decision.Results {
		entry := ruleAudit{
			Policy:     rr.Policy,
			Passed:     rr.Result.Passed,
			ErrorKind:  rr.Result.ErrorKind,
			Message:    rr.Result.Message,
			Data:       rr.Result.Data,
			DurationMS: rr.Duration.Milliseconds(),
			Cached:     rr.Cached,
		}
		if rr.Err != nil {
			entry.Error = rr.Err.Error()
		}
		rules = append(rules, entry)
	}

	err := s.auditor.Log(ctx, user.ID, model.AuditActionEvaluate, model.AuditEntityUser, user.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"actor":  audit.ActorFromContext(ctx),
			"mode":   decision.Mode,
			"passed": decision.Passed,
			"score":  decision.Score,
			"rules":  rules,
		},
	})
	if err != nil {
		s.logger.WithContext(ctx).Error(err, "Failed to write evaluation audit log", "user_id", user.ID.String())
	}
}

func (s *Service) publishEvents(ctx context.Context, user *model.User, decision *policy.Decision) {
	event := model.PolicyEvent{
		Type:       model.EventPolicyEvaluated,
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Language:   user.PreferredLanguage,
		Passed:     decision.Passed,
		Mode:       string(decision.Mode),
		Messages:   eventMessages(decision.Messages),
		OccurredAt: s.now().UTC(),
	}
	s.publish(ctx, event)

	for _, rr := range decision.Results {
		if disabled, _ := rr.Result.Data[policy.DataCredentialDisabled].(bool); !disabled {
			continue
		}
		locked := event
		locked.Type = model.EventCredentialDisabled
		if rr.Result.Message != nil {
			locked.Messages = eventMessages([]policy.Message{*rr.Result.Message})
		}
		s.publish(ctx, locked)
		break
	}
}

func (s *Service) publish(ctx context.Context, event model.PolicyEvent) {
	err := s.publisher.Publish(ctx, model.PolicyEventsChannel, event)
	s.metrics.EventPublished(event.Type, err)
	if err != nil {
		s.logger.WithContext(ctx).Error(err, "Failed to publish policy event",
			"type", event.Type,
			"user_id", event.UserID.String(),
		)
	}
}

func eventMessages(msgs []policy.Message) []model.EventMessage {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]model.EventMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, model.EventMessage{ID: m.ID, Params: m.Params})
	}
	return out
}

func (s *Service) CreatePolicy(ctx context.Context, req *model.CreatePasswordExpiryPolicyRequest) (*model.PasswordExpiryPolicy, error) {
	p := &model.PasswordExpiryPolicy{
		Name:     req.Name,
		Days:     req.Days,
		DenyOnly: req.DenyOnly,
		Negate:   req.Negate,
		Order:    req.Order,
		Weight:   1,
		Enabled:  true,
	}
	if req.Weight != nil {
		p.Weight = *req.Weight
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}

	if err := s.validate(p); err != nil {
		return nil, err
	}

	if err := s.policies.Create(ctx, p); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to create policy: %w", err))
	}
	s.engine.FlushCache()

	s.auditChange(ctx, model.AuditActionCreate, p.ID, p)
	return p, nil
}

func (s *Service) GetPolicy(ctx context.Context, id uuid.UUID) (*model.PasswordExpiryPolicy, error) {
	p, err := s.policies.Get(ctx, id)
	if err != nil {
		return nil, s.repoError(err, "failed to get policy")
	}
	return p, nil
}

func (s *Service) UpdatePolicy(ctx context.Context, id uuid.UUID, req *model.UpdatePasswordExpiryPolicyRequest) (*model.PasswordExpiryPolicy, error) {
	p, err := s.policies.Get(ctx, id)
	if err != nil {
		return nil, s.repoError(err, "failed to get policy")
	}

	req.Apply(p)
	if err := s.validate(p); err != nil {
		return nil, err
	}

	if err := s.policies.Update(ctx, p); err != nil {
		return nil, s.repoError(err, "failed to update policy")
	}
	s.engine.FlushCache()

	s.auditChange(ctx, model.AuditActionUpdate, p.ID, req)
	return p, nil
}

func (s *Service) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	if err := s.policies.Delete(ctx, id); err != nil {
		return s.repoError(err, "failed to delete policy")
	}
	s.engine.FlushCache()
	s.auditChange(ctx, model.AuditActionDelete, id, nil)
	return nil
}

func (s *Service) ListPolicies(ctx context.Context) ([]*model.PasswordExpiryPolicy, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list policies: %w", err))
	}
	return policies, nil
}

func (s *Service) validate(p *model.PasswordExpiryPolicy) error {
	if err := s.validator.Validate(p); err != nil {
		return apperrors.Configuration(err.Error(), fmt.Errorf("%w: %w", policy.ErrConfiguration, err))
	}
	if p.Negate && !p.DenyOnly {
		return apperrors.Configuration(ErrNegateRequiresDenyOnly.Error(),
			fmt.Errorf("%w: %w", policy.ErrConfiguration, ErrNegateRequiresDenyOnly))
	}
	return nil
}

func (s *Service) repoError(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("policy", err)
	}
	return apperrors.Storage(fmt.Errorf("%s: %w", msg, err))
}

func (s *Service) auditChange(ctx context.Context, action string, id uuid.UUID, changes interface{}) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Log(ctx, uuid.Nil, action, model.AuditEntityPolicy, id, &audit.LogOptions{
		Changes:  changes,
		Metadata: map[string]string{"actor": audit.ActorFromContext(ctx)},
	})
	if err != nil {
		s.logger.WithContext(ctx).Error(err, "Failed to write audit log",
			"action", action,
			"policy_id", id.String(),
		)
	}
}
