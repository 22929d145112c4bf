package ipn

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/catalyst/moodle-availability-paypal/internal/availability"
	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"github.com/catalyst/moodle-availability-paypal/pkg/enums"
	pkgerrors "github.com/catalyst/moodle-availability-paypal/pkg/errors"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
	"github.com/catalyst/moodle-availability-paypal/pkg/metrics"
	"github.com/catalyst/moodle-availability-paypal/pkg/paypal"
	"github.com/shopspring/decimal"
)

// Outcome names the terminal state reached for one notification.
type Outcome string

const (
	OutcomeAccepted          Outcome = "accepted"
	OutcomePending           Outcome = "payment_pending"
	OutcomeUserNotFound      Outcome = "user_not_found"
	OutcomeContextNotFound   Outcome = "context_not_found"
	OutcomeConditionNotFound Outcome = "condition_not_found"
	OutcomeVerifyFailed      Outcome = "verify_failed"
	OutcomeCurrencyMismatch  Outcome = "currency_mismatch"
	OutcomeAmountMismatch    Outcome = "amount_mismatch"
	OutcomeNotSettled        Outcome = "not_settled"
	OutcomeDuplicate         Outcome = "duplicate_txn"
	OutcomeInvalid           Outcome = "invalid"
	OutcomeIgnored           Outcome = "ignored"
	OutcomeError             Outcome = "error"
)

// Administrative notification subjects.
const (
	subjectInvalidUserID     = "Not a valid user id"
	subjectInvalidContextID  = "Not a valid context id"
	subjectConditionNotFound = "PayPal condition not found while processing incoming IPN"
	subjectVerifyFailed      = "Could not verify payment notification with the gateway"
	subjectInvalidPayment    = "Invalid payment notification received"
)

type transactionStore interface {
	Create(ctx context.Context, tnx *models.PayPalTransaction) error
	CountByTxnID(ctx context.Context, txnID string) (int64, error)
	FindByTxnID(ctx context.Context, txnID string) (*models.PayPalTransaction, error)
}

type userSource interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type contextSource interface {
	FindByID(ctx context.Context, id int64) (*models.Context, error)
}

type availabilitySource interface {
	ModuleAvailability(ctx context.Context, moduleID int64) (string, error)
	SectionAvailability(ctx context.Context, sectionID int64) (string, error)
}

type gatewayVerifier interface {
	Verify(ctx context.Context, fields []paypal.Field) (paypal.Result, error)
}

type notifier interface {
	NotifyError(ctx context.Context, subject string, data map[string]string) error
	NotifyPaymentPending(ctx context.Context, userID int64, data map[string]string) error
}

// ServiceParams wires the IPN handler dependencies.
type ServiceParams struct {
	Store        transactionStore
	Users        userSource
	Contexts     contextSource
	Availability availabilitySource
	Verifier     gatewayVerifier
	Notifier     notifier
	Clock        func() time.Time
	Logger       *logger.Logger
	Metrics      *metrics.IPNMetrics
}

// Service applies the IPN business rules to one notification at a time.
type Service struct {
	store        transactionStore
	users        userSource
	contexts     contextSource
	availability availabilitySource
	verifier     gatewayVerifier
	notifier     notifier
	clock        func() time.Time
	logg         *logger.Logger
	metrics      *metrics.IPNMetrics
}

// NewService validates and wires the handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction store required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user source required")
	}
	if params.Contexts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "context source required")
	}
	if params.Availability == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "availability source required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway verifier required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:        params.Store,
		users:        params.Users,
		contexts:     params.Contexts,
		availability: params.Availability,
		verifier:     params.Verifier,
		notifier:     params.Notifier,
		clock:        clock,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// Process runs one notification through resolution, gateway verification and
// the business rules, and returns the terminal state. Every terminal state
// short-circuits; nothing is retried here, the gateway redelivers on its own
// schedule.
func (s *Service) Process(ctx context.Context, notif *Notification) Outcome {
	data := notif.Values()
	userID, contextID, sectionID := notif.Custom()

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"user_id":    userID,
			"context_id": contextID,
			"txn_id":     notif.Get(fieldTxnID),
		})
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return s.fail(ctx, "load user", err)
	}
	if user == nil {
		return s.reject(ctx, OutcomeUserNotFound, subjectInvalidUserID, data)
	}

	node, err := s.contexts.FindByID(ctx, contextID)
	if err != nil {
		return s.fail(ctx, "load context", err)
	}
	if node == nil {
		return s.reject(ctx, OutcomeContextNotFound, subjectInvalidContextID, data)
	}

	cond, err := s.resolveCondition(ctx, node, sectionID)
	if err != nil {
		return s.fail(ctx, "resolve condition", err)
	}
	if cond == nil {
		return s.reject(ctx, OutcomeConditionNotFound, subjectConditionNotFound, data)
	}

	started := s.clock()
	result, err := s.verifier.Verify(ctx, notif.Fields())
	if s.metrics != nil {
		s.metrics.ObserveVerify(string(result), s.clock().Sub(started))
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "gateway verification failed", err)
		}
		return s.reject(ctx, OutcomeVerifyFailed, subjectVerifyFailed, data)
	}

	switch result {
	case paypal.ResultVerified:
		return s.processVerified(ctx, notif, cond, userID, contextID, sectionID, data)
	case paypal.ResultInvalid:
		return s.processInvalid(ctx, notif, userID, contextID, sectionID, data)
	}

	// Anything that is neither VERIFIED nor INVALID ends the request with no
	// observable effect. Logged and counted as an anomaly only.
	if s.logg != nil {
		s.logg.Debug(ctx, "unrecognized verifier response, dropping notification")
	}
	return s.done(OutcomeIgnored)
}

func (s *Service) processVerified(ctx context.Context, notif *Notification, cond *availability.PayPalCondition, userID, contextID, sectionID int64, data map[string]string) Outcome {
	// The row is written before any consistency checks run. Replays therefore
	// produce a second copy before the duplicate test below can report them.
	row := s.buildRow(notif, userID, contextID, sectionID, false)
	if err := s.store.Create(ctx, row); err != nil {
		return s.fail(ctx, "persist transaction", err)
	}

	status := enums.PaymentStatus(notif.Get(fieldPaymentStatus))
	pendingReason := notif.Get(fieldPendingReason)

	if status != enums.PaymentStatusCompleted && status != enums.PaymentStatusPending {
		// Informational only, processing continues.
		s.notifyError(ctx, fmt.Sprintf("Payment status neither completed nor pending: %s", status), data)
	}

	if notif.Get(fieldCurrency) != cond.Currency {
		subject := fmt.Sprintf("Currency does not match course settings, received: %s", notif.Get(fieldCurrency))
		return s.reject(ctx, OutcomeCurrencyMismatch, subject, data)
	}

	if !amountsEqual(notif.Get(fieldGross), cond.Cost) {
		subject := fmt.Sprintf("Amount paid does not match the course cost, received: %s", notif.Get(fieldGross))
		return s.reject(ctx, OutcomeAmountMismatch, subject, data)
	}

	if status == enums.PaymentStatusPending && pendingReason != enums.PendingReasonEcheck {
		if err := s.notifier.NotifyPaymentPending(ctx, userID, data); err != nil && s.logg != nil {
			s.logg.Error(ctx, "send payment pending message", err)
		}
		return s.done(OutcomePending)
	}

	if !status.IsSettled(pendingReason) {
		return s.done(OutcomeNotSettled)
	}

	txnID := notif.Get(fieldTxnID)
	count, err := s.store.CountByTxnID(ctx, txnID)
	if err != nil {
		return s.fail(ctx, "check duplicate txn", err)
	}
	if count > 1 {
		subject := fmt.Sprintf("Transaction %s is being repeated", txnID)
		// The report carries the oldest stored row next to the replayed payload.
		prior, findErr := s.store.FindByTxnID(ctx, txnID)
		if findErr != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "load original transaction", findErr)
			}
		} else if prior != nil {
			data["original_row_id"] = strconv.FormatInt(prior.ID, 10)
			data["original_payment_status"] = prior.PaymentStatus
			data["original_time_updated"] = prior.TimeUpdated.UTC().Format(time.RFC3339)
		}
		return s.reject(ctx, OutcomeDuplicate, subject, data)
	}

	if s.logg != nil {
		s.logg.Info(ctx, "payment notification accepted")
	}
	return s.done(OutcomeAccepted)
}

func (s *Service) processInvalid(ctx context.Context, notif *Notification, userID, contextID, sectionID int64, data map[string]string) Outcome {
	row := s.buildRow(notif, userID, contextID, sectionID, true)
	if err := s.store.Create(ctx, row); err != nil {
		return s.fail(ctx, "persist rejected transaction", err)
	}
	return s.reject(ctx, OutcomeInvalid, subjectInvalidPayment, data)
}

func (s *Service) resolveCondition(ctx context.Context, node *models.Context, sectionID int64) (*availability.PayPalCondition, error) {
	var raw string
	var err error
	switch node.ContextLevel {
	case enums.ContextLevelModule:
		raw, err = s.availability.ModuleAvailability(ctx, node.InstanceID)
	case enums.ContextLevelCourse:
		// Section lookups use the section id from the custom field, not the
		// context instance.
		raw, err = s.availability.SectionAvailability(ctx, sectionID)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cond, err := availability.FirstPayPal(raw)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "availability json did not decode")
		}
		return nil, nil
	}
	return cond, nil
}

func (s *Service) buildRow(notif *Notification, userID, contextID, sectionID int64, ignored bool) *models.PayPalTransaction {
	return &models.PayPalTransaction{
		UserID:           userID,
		ContextID:        contextID,
		SectionID:        sectionID,
		Business:         notif.Get(fieldBusiness),
		ReceiverEmail:    notif.Get(fieldReceiverEmail),
		ReceiverID:       notif.Get(fieldReceiverID),
		ItemName:         notif.Get(fieldItemName),
		Memo:             notif.Get(fieldMemo),
		Tax:              notif.Get(fieldTax),
		OptionName1:      notif.Get(fieldOptionName1),
		OptionSelection1: notif.Get(fieldOptionSelection1),
		OptionName2:      notif.Get(fieldOptionName2),
		OptionSelection2: notif.Get(fieldOptionSelection2),
		PaymentStatus:    notif.Get(fieldPaymentStatus),
		PendingReason:    notif.Get(fieldPendingReason),
		ReasonCode:       notif.Get(fieldReasonCode),
		TxnID:            notif.Get(fieldTxnID),
		ParentTxnID:      notif.Get(fieldParentTxnID),
		PaymentType:      notif.Get(fieldPaymentType),
		Ignored:          ignored,
		TimeUpdated:      s.clock().UTC(),
	}
}

func (s *Service) notifyError(ctx context.Context, subject string, data map[string]string) {
	if err := s.notifier.NotifyError(ctx, subject, data); err != nil && s.logg != nil {
		s.logg.Error(ctx, "send error notification", err)
	}
}

func (s *Service) reject(ctx context.Context, outcome Outcome, subject string, data map[string]string) Outcome {
	s.notifyError(ctx, subject, data)
	return s.done(outcome)
}

func (s *Service) fail(ctx context.Context, step string, err error) Outcome {
	if s.logg != nil {
		s.logg.Error(ctx, step, err)
	}
	return s.done(OutcomeError)
}

func (s *Service) done(outcome Outcome) Outcome {
	if s.metrics != nil {
		s.metrics.IncOutcome(string(outcome))
	}
	return outcome
}

// amountsEqual compares the reported gross against the configured cost using
// exact decimal arithmetic. Unparseable values never match.
func amountsEqual(gross, cost string) bool {
	g, err := decimal.NewFromString(gross)
	if err != nil {
		return false
	}
	c, err := decimal.NewFromString(cost)
	if err != nil {
		return false
	}
	return g.Equal(c)
}
