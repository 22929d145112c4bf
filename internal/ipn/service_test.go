package ipn

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"github.com/catalyst/moodle-availability-paypal/pkg/enums"
	"github.com/catalyst/moodle-availability-paypal/pkg/paypal"
)

type stubStore struct {
	rows      []*models.PayPalTransaction
	createErr error
	countErr  error
}

func (s *stubStore) Create(_ context.Context, tnx *models.PayPalTransaction) error {
	if s.createErr != nil {
		return s.createErr
	}
	tnx.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, tnx)
	return nil
}

func (s *stubStore) CountByTxnID(_ context.Context, txnID string) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	var count int64
	for _, row := range s.rows {
		if row.TxnID == txnID {
			count++
		}
	}
	return count, nil
}

func (s *stubStore) FindByTxnID(_ context.Context, txnID string) (*models.PayPalTransaction, error) {
	for _, row := range s.rows {
		if row.TxnID == txnID {
			return row, nil
		}
	}
	return nil, nil
}

type stubUsers struct {
	user *models.User
	err  error
}

func (s *stubUsers) FindByID(_ context.Context, id int64) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.ID != id {
		return nil, nil
	}
	return s.user, nil
}

type stubContexts struct {
	node *models.Context
}

func (s *stubContexts) FindByID(_ context.Context, id int64) (*models.Context, error) {
	if s.node == nil || s.node.ID != id {
		return nil, nil
	}
	return s.node, nil
}

type stubAvailability struct {
	moduleJSON  string
	sectionJSON string

	moduleRequests  []int64
	sectionRequests []int64
}

func (s *stubAvailability) ModuleAvailability(_ context.Context, moduleID int64) (string, error) {
	s.moduleRequests = append(s.moduleRequests, moduleID)
	return s.moduleJSON, nil
}

func (s *stubAvailability) SectionAvailability(_ context.Context, sectionID int64) (string, error) {
	s.sectionRequests = append(s.sectionRequests, sectionID)
	return s.sectionJSON, nil
}

type stubVerifier struct {
	result paypal.Result
	err    error
	fields []paypal.Field
}

func (s *stubVerifier) Verify(_ context.Context, fields []paypal.Field) (paypal.Result, error) {
	s.fields = fields
	return s.result, s.err
}

type stubNotifier struct {
	errorSubjects []string
	errorData     []map[string]string
	pendingUsers  []int64
	sendErr       error
}

func (s *stubNotifier) NotifyError(_ context.Context, subject string, data map[string]string) error {
	s.errorSubjects = append(s.errorSubjects, subject)
	s.errorData = append(s.errorData, data)
	return s.sendErr
}

func (s *stubNotifier) NotifyPaymentPending(_ context.Context, userID int64, _ map[string]string) error {
	s.pendingUsers = append(s.pendingUsers, userID)
	return s.sendErr
}

type serviceFixture struct {
	store        *stubStore
	users        *stubUsers
	contexts     *stubContexts
	availability *stubAvailability
	verifier     *stubVerifier
	notifier     *stubNotifier
	service      *Service
}

const moduleAvailabilityJSON = `{"op":"&","c":[{"type":"date","d":">="},{"type":"paypal","businessemail":"seller@example.com","currency":"AUD","cost":"10.00","itemname":"Course access"}]}`

func newFixture(t *testing.T, result paypal.Result) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		store:    &stubStore{},
		users:    &stubUsers{user: &models.User{ID: 42, Username: "payer"}},
		contexts: &stubContexts{node: &models.Context{ID: 7, ContextLevel: enums.ContextLevelModule, InstanceID: 300}},
		availability: &stubAvailability{
			moduleJSON:  moduleAvailabilityJSON,
			sectionJSON: moduleAvailabilityJSON,
		},
		verifier: &stubVerifier{result: result},
		notifier: &stubNotifier{},
	}

	service, err := NewService(ServiceParams{
		Store:        f.store,
		Users:        f.users,
		Contexts:     f.contexts,
		Availability: f.availability,
		Verifier:     f.verifier,
		Notifier:     f.notifier,
		Clock:        func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	f.service = service
	return f
}

func notification(overrides map[string]string) *Notification {
	values := map[string]string{
		"custom":         "42-7-0",
		"business":       "seller@example.com",
		"receiver_email": "seller@example.com",
		"item_name":      "Course access",
		"payment_status": "Completed",
		"txn_id":         "TXN-100",
		"payment_type":   "instant",
		"mc_currency":    "AUD",
		"mc_gross":       "10.00",
	}
	for k, v := range overrides {
		if v == "" {
			delete(values, k)
			continue
		}
		values[k] = v
	}

	raw := ""
	for _, key := range []string{
		"custom", "business", "receiver_email", "item_name", "payment_status",
		"pending_reason", "txn_id", "payment_type", "mc_currency", "mc_gross",
	} {
		value, ok := values[key]
		if !ok {
			continue
		}
		if raw != "" {
			raw += "&"
		}
		raw += fmt.Sprintf("%s=%s", key, value)
	}
	return ParseForm(raw)
}

func TestService_ProcessAcceptsCompletedPayment(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", outcome)
	}
	if len(f.store.rows) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(f.store.rows))
	}
	row := f.store.rows[0]
	if row.Ignored {
		t.Fatalf("accepted row must not be flagged ignored")
	}
	if row.UserID != 42 || row.ContextID != 7 {
		t.Fatalf("row carries wrong ids: user=%d context=%d", row.UserID, row.ContextID)
	}
	if len(f.notifier.errorSubjects) != 0 {
		t.Fatalf("unexpected notifications: %v", f.notifier.errorSubjects)
	}
	if len(f.availability.moduleRequests) != 1 || f.availability.moduleRequests[0] != 300 {
		t.Fatalf("expected module lookup by context instance, got %v", f.availability.moduleRequests)
	}
}

func TestService_ProcessUnknownUserStopsBeforeVerification(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)
	f.users.user = nil

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeUserNotFound {
		t.Fatalf("expected user_not_found, got %s", outcome)
	}
	if len(f.store.rows) != 0 {
		t.Fatalf("no row may be written for an unknown user")
	}
	if f.verifier.fields != nil {
		t.Fatalf("verifier must not be called")
	}
	if len(f.notifier.errorSubjects) != 1 || f.notifier.errorSubjects[0] != "Not a valid user id" {
		t.Fatalf("expected invalid user notification, got %v", f.notifier.errorSubjects)
	}
}

func TestService_ProcessUnknownContext(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)
	f.contexts.node = nil

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeContextNotFound {
		t.Fatalf("expected context_not_found, got %s", outcome)
	}
	if len(f.store.rows) != 0 {
		t.Fatalf("no row may be written for an unknown context")
	}
	if len(f.notifier.errorSubjects) != 1 || f.notifier.errorSubjects[0] != "Not a valid context id" {
		t.Fatalf("expected invalid context notification, got %v", f.notifier.errorSubjects)
	}
}

func TestService_ProcessMissingPayPalCondition(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)
	f.availability.moduleJSON = `{"op":"&","c":[{"type":"date"}]}`

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeConditionNotFound {
		t.Fatalf("expected condition_not_found, got %s", outcome)
	}
	if len(f.store.rows) != 0 {
		t.Fatalf("no row may be written without a condition")
	}
	if len(f.notifier.errorSubjects) != 1 ||
		f.notifier.errorSubjects[0] != "PayPal condition not found while processing incoming IPN" {
		t.Fatalf("expected condition notification, got %v", f.notifier.errorSubjects)
	}
}

func TestService_ProcessMalformedAvailabilityJSON(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)
	f.availability.moduleJSON = `{"op":`

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeConditionNotFound {
		t.Fatalf("expected condition_not_found, got %s", outcome)
	}
	if len(f.store.rows) != 0 {
		t.Fatalf("no row may be written for malformed availability")
	}
}

func TestService_ProcessCourseContextUsesSectionFromCustom(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)
	f.contexts.node = &models.Context{ID: 7, ContextLevel: enums.ContextLevelCourse, InstanceID: 999}

	outcome := f.service.Process(context.Background(), notification(map[string]string{"custom": "42-7-55"}))
	if outcome != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", outcome)
	}
	if len(f.availability.sectionRequests) != 1 || f.availability.sectionRequests[0] != 55 {
		t.Fatalf("expected section lookup by custom section id, got %v", f.availability.sectionRequests)
	}
	if len(f.availability.moduleRequests) != 0 {
		t.Fatalf("module availability must not be consulted for a course context")
	}
	if f.store.rows[0].SectionID != 55 {
		t.Fatalf("row must carry the section id, got %d", f.store.rows[0].SectionID)
	}
}

func TestService_ProcessUserLevelContextHasNoCondition(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)
	f.contexts.node = &models.Context{ID: 7, ContextLevel: enums.ContextLevelUser, InstanceID: 42}

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeConditionNotFound {
		t.Fatalf("expected condition_not_found, got %s", outcome)
	}
}

func TestService_ProcessVerifierTransportError(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)
	f.verifier.err = errors.New("connect: timeout")

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeVerifyFailed {
		t.Fatalf("expected verify_failed, got %s", outcome)
	}
	if len(f.store.rows) != 0 {
		t.Fatalf("no row may be written when verification cannot run")
	}
	if len(f.notifier.errorSubjects) != 1 ||
		f.notifier.errorSubjects[0] != "Could not verify payment notification with the gateway" {
		t.Fatalf("expected verify failure notification, got %v", f.notifier.errorSubjects)
	}
}

func TestService_ProcessInvalidResultRecordsIgnoredRow(t *testing.T) {
	f := newFixture(t, paypal.ResultInvalid)

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeInvalid {
		t.Fatalf("expected invalid, got %s", outcome)
	}
	if len(f.store.rows) != 1 {
		t.Fatalf("invalid notification must still leave an audit row")
	}
	if !f.store.rows[0].Ignored {
		t.Fatalf("audit row must be flagged ignored")
	}
	if len(f.notifier.errorSubjects) != 1 ||
		f.notifier.errorSubjects[0] != "Invalid payment notification received" {
		t.Fatalf("expected invalid payment notification, got %v", f.notifier.errorSubjects)
	}
}

func TestService_ProcessUnrecognizedVerifierResponse(t *testing.T) {
	f := newFixture(t, paypal.Result("GARBAGE"))

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}
	if len(f.store.rows) != 0 {
		t.Fatalf("anomalous responses must not be persisted")
	}
	if len(f.notifier.errorSubjects) != 0 || len(f.notifier.pendingUsers) != 0 {
		t.Fatalf("anomalous responses must not notify anyone")
	}
}

func TestService_ProcessCurrencyMismatch(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	outcome := f.service.Process(context.Background(), notification(map[string]string{"mc_currency": "USD"}))
	if outcome != OutcomeCurrencyMismatch {
		t.Fatalf("expected currency_mismatch, got %s", outcome)
	}
	if len(f.store.rows) != 1 {
		t.Fatalf("row must be written before the currency check")
	}
	if len(f.notifier.errorSubjects) != 1 ||
		f.notifier.errorSubjects[0] != "Currency does not match course settings, received: USD" {
		t.Fatalf("unexpected notifications: %v", f.notifier.errorSubjects)
	}
}

func TestService_ProcessAmountMismatch(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	outcome := f.service.Process(context.Background(), notification(map[string]string{"mc_gross": "9.99"}))
	if outcome != OutcomeAmountMismatch {
		t.Fatalf("expected amount_mismatch, got %s", outcome)
	}
	if len(f.store.rows) != 1 {
		t.Fatalf("row must be written before the amount check")
	}
}

func TestService_ProcessAmountComparesDecimally(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	// 10 == 10.00 despite differing text.
	outcome := f.service.Process(context.Background(), notification(map[string]string{"mc_gross": "10"}))
	if outcome != OutcomeAccepted {
		t.Fatalf("expected accepted for equal decimal values, got %s", outcome)
	}
}

func TestService_ProcessPendingNonEcheckMessagesPayer(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	outcome := f.service.Process(context.Background(), notification(map[string]string{
		"payment_status": "Pending",
		"pending_reason": "address",
	}))
	if outcome != OutcomePending {
		t.Fatalf("expected payment_pending, got %s", outcome)
	}
	if len(f.notifier.pendingUsers) != 1 || f.notifier.pendingUsers[0] != 42 {
		t.Fatalf("expected pending message to payer 42, got %v", f.notifier.pendingUsers)
	}
	if len(f.store.rows) != 1 {
		t.Fatalf("pending payments still leave a row")
	}
}

func TestService_ProcessPendingEcheckIsAccepted(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	outcome := f.service.Process(context.Background(), notification(map[string]string{
		"payment_status": "Pending",
		"pending_reason": "echeck",
	}))
	if outcome != OutcomeAccepted {
		t.Fatalf("expected accepted for pending echeck, got %s", outcome)
	}
	if len(f.notifier.pendingUsers) != 0 {
		t.Fatalf("echeck payments must not message the payer")
	}
}

func TestService_ProcessDeniedStatusNotifiesThenStopsSilently(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	outcome := f.service.Process(context.Background(), notification(map[string]string{"payment_status": "Denied"}))
	if outcome != OutcomeNotSettled {
		t.Fatalf("expected not_settled, got %s", outcome)
	}
	if len(f.store.rows) != 1 {
		t.Fatalf("denied payments still leave a row")
	}
	// Exactly the informational status notification, nothing for the final stop.
	if len(f.notifier.errorSubjects) != 1 ||
		f.notifier.errorSubjects[0] != "Payment status neither completed nor pending: Denied" {
		t.Fatalf("unexpected notifications: %v", f.notifier.errorSubjects)
	}
}

func TestService_ProcessReplayInsertsSecondRowBeforeDetection(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	first := f.service.Process(context.Background(), notification(nil))
	if first != OutcomeAccepted {
		t.Fatalf("first delivery should be accepted, got %s", first)
	}

	second := f.service.Process(context.Background(), notification(nil))
	if second != OutcomeDuplicate {
		t.Fatalf("replay should be reported as duplicate, got %s", second)
	}

	// The duplicate check runs after the insert, so the replay leaves a
	// second copy of the transaction behind.
	if len(f.store.rows) != 2 {
		t.Fatalf("expected two rows after a replay, got %d", len(f.store.rows))
	}
	last := f.notifier.errorSubjects[len(f.notifier.errorSubjects)-1]
	if last != "Transaction TXN-100 is being repeated" {
		t.Fatalf("expected duplicate notification, got %q", last)
	}
	// The report names the first stored row so admins can compare both copies.
	report := f.notifier.errorData[len(f.notifier.errorData)-1]
	if report["original_row_id"] != "1" {
		t.Fatalf("expected original row id 1 in report, got %q", report["original_row_id"])
	}
	if report["original_payment_status"] != "Completed" {
		t.Fatalf("expected original payment status in report, got %q", report["original_payment_status"])
	}
}

func TestService_ProcessStoreFailure(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)
	f.store.createErr = errors.New("insert failed")

	outcome := f.service.Process(context.Background(), notification(nil))
	if outcome != OutcomeError {
		t.Fatalf("expected error outcome, got %s", outcome)
	}
}

func TestService_ProcessVerifierReceivesFieldsInOrder(t *testing.T) {
	f := newFixture(t, paypal.ResultVerified)

	f.service.Process(context.Background(), notification(nil))

	if len(f.verifier.fields) == 0 {
		t.Fatalf("verifier received no fields")
	}
	if f.verifier.fields[0].Name != "custom" {
		t.Fatalf("field order must match the received payload, first was %s", f.verifier.fields[0].Name)
	}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	if err == nil {
		t.Fatalf("expected constructor error for missing dependencies")
	}
}
