package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/catalyst/moodle-availability-paypal/internal/contexts"
	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	pkgerrors "github.com/catalyst/moodle-availability-paypal/pkg/errors"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// CapabilityReceiveNotifications marks accounts that should receive payment
// error reports. Granted at system scope.
const CapabilityReceiveNotifications = "availability/paypal:receivenotifications"

// SubjectPaymentPending is the subject of the payer-facing pending message.
const SubjectPaymentPending = "Payment pending"

type recipientSource interface {
	ListWithCapability(ctx context.Context, contextID int64, capability string) ([]models.User, error)
	ListSiteAdmins(ctx context.Context) ([]models.User, error)
}

type messageRepository interface {
	Create(ctx context.Context, message *models.Message) error
}

type busPublisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

// ServiceParams wires the notifier dependencies.
type ServiceParams struct {
	Recipients recipientSource
	Messages   messageRepository
	Bus        busPublisher
	Clock      func() time.Time
	Logger     *logger.Logger
}

// Service delivers payment notifications through the host messaging channel.
// Delivery is fire-and-forget; bus publish failures are logged, not returned.
type Service struct {
	recipients recipientSource
	messages   messageRepository
	bus        busPublisher
	clock      func() time.Time
	logg       *logger.Logger
}

// NewService validates and wires the notifier.
func NewService(params ServiceParams) (*Service, error) {
	if params.Recipients == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "recipient source required")
	}
	if params.Messages == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "message repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		recipients: params.Recipients,
		messages:   params.Messages,
		bus:        params.Bus,
		clock:      clock,
		logg:       params.Logger,
	}, nil
}

// NotifyError reports a processing problem to every payment-notification
// capability holder at system scope, falling back to site admins when the
// capability is granted to nobody.
func (s *Service) NotifyError(ctx context.Context, subject string, data map[string]string) error {
	holders, err := s.recipients.ListWithCapability(ctx, contexts.SystemContextID, CapabilityReceiveNotifications)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list capability holders")
	}
	if len(holders) == 0 {
		holders, err = s.recipients.ListSiteAdmins(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list site admins")
		}
	}

	body := renderBody(data)
	var sendErr error
	for _, recipient := range holders {
		if err := s.send(ctx, recipient.ID, subject, body); err != nil {
			sendErr = multierr.Append(sendErr, fmt.Errorf("notify user %d: %w", recipient.ID, err))
		}
	}
	return sendErr
}

// NotifyPaymentPending tells the payer their payment has not settled yet.
func (s *Service) NotifyPaymentPending(ctx context.Context, userID int64, data map[string]string) error {
	return s.send(ctx, userID, SubjectPaymentPending, renderBody(data))
}

func (s *Service) send(ctx context.Context, userID int64, subject, body string) error {
	message := &models.Message{
		UserIDTo:    userID,
		Subject:     subject,
		FullMessage: body,
		TimeCreated: s.clock().UTC(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist message")
	}
	s.publish(ctx, message)
	return nil
}

type busEnvelope struct {
	ID          string    `json:"id"`
	UserIDTo    int64     `json:"useridto"`
	Subject     string    `json:"subject"`
	FullMessage string    `json:"fullmessage"`
	TimeCreated time.Time `json:"timecreated"`
}

func (s *Service) publish(ctx context.Context, message *models.Message) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(busEnvelope{
		ID:          uuid.NewString(),
		UserIDTo:    message.UserIDTo,
		Subject:     message.Subject,
		FullMessage: message.FullMessage,
		TimeCreated: message.TimeCreated,
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "marshal message envelope", err)
		}
		return
	}
	if err := s.bus.Publish(ctx, payload, map[string]string{"subject": message.Subject}); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "publish message envelope", err)
		}
	}
}

// renderBody lists every key/value pair as one line, sorted by key. The
// no-data case renders an empty body.
func renderBody(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(" => ")
		b.WriteString(data[k])
		b.WriteByte('\n')
	}
	return b.String()
}
