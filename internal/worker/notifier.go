package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/access-policy/internal/email"
	"github.com/jwalitptl/access-policy/internal/model"
	"github.com/jwalitptl/access-policy/pkg/i18n"
	"github.com/jwalitptl/access-policy/pkg/logger"
	"github.com/jwalitptl/access-policy/pkg/messaging"
	"github.com/jwalitptl/access-policy/pkg/metrics"
)

// Notification template ids
const (
	MsgNotifySubject  = "notification.credential_disabled.subject"
	MsgNotifyGreeting = "notification.credential_disabled.greeting"
	MsgNotifyFooter   = "notification.credential_disabled.footer"
)

// NotificationTranslations are the notification mail templates per locale.
var NotificationTranslations = map[string]map[string]string{
	"en": {
		MsgNotifySubject:  "Your password has expired",
		MsgNotifyGreeting: "Hello {0},",
		MsgNotifyFooter:   "Your account has been locked until you reset your password.",
	},
	"de": {
		MsgNotifySubject:  "Ihr Passwort ist abgelaufen",
		MsgNotifyGreeting: "Hallo {0},",
		MsgNotifyFooter:   "Ihr Konto bleibt gesperrt, bis Sie Ihr Passwort zurücksetzen.",
	},
}

// Notifier mails users whose credential was disabled by a policy.
type Notifier struct {
	broker  messaging.Broker
	mailer  email.Service
	catalog *i18n.Catalog
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewNotifier(broker messaging.Broker, mailer email.Service, catalog *i18n.Catalog, log *logger.Logger, m *metrics.Metrics) *Notifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &Notifier{
		broker:  broker,
		mailer:  mailer,
		catalog: catalog,
		logger:  log.WithFields(map[string]interface{}{"worker": "notifier"}),
		metrics: m,
	}
}

// Start consumes policy events until ctx is done or the subscription ends.
func (n *Notifier) Start(ctx context.Context) error {
	n.logger.Info("Notifier started", "channel", model.PolicyEventsChannel)
	return messaging.Consume(ctx, n.broker, model.PolicyEventsChannel, n.Handle, func(err error) {
		n.logger.Error(err, "Failed to handle policy event")
	})
}

// Handle processes one raw event. Events other than credential lockouts are
// ignored.
func (n *Notifier) Handle(ctx context.Context, payload []byte) error {
	var event model.PolicyEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	if event.Type != model.EventCredentialDisabled {
		return nil
	}
	if event.Email == "" {
		n.logger.Warn("Locked user has no email address", "user_id", event.UserID.String())
		return nil
	}

	subject, body := n.render(event)
	err := n.mailer.SendCustom(ctx, event.Email, subject, body)
	n.metrics.NotificationSent(err)
	if err != nil {
		return err
	}

	n.logger.Debug("Lockout notification sent", "user_id", event.UserID.String())
	return nil
}

func (n *Notifier) render(event model.PolicyEvent) (string, string) {
	locale := event.Language
	if locale == "" {
		locale = i18n.DefaultLocale
	}

	name := event.Name
	if name == "" {
		name = event.Email
	}

	body := n.catalog.Render(locale, MsgNotifyGreeting, name) + "\n\n"
	for _, m := range event.Messages {
		body += n.catalog.Render(locale, m.ID, m.Params...) + "\n"
	}
	body += "\n" + n.catalog.Render(locale, MsgNotifyFooter) + "\n"

	return n.catalog.Render(locale, MsgNotifySubject), body
}
