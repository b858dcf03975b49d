package transaction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Trandev/Medlink/internal/config"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/internal/vnpay"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const testHashSecret = "unit-test-hash-secret"

// fakeTransactionRepo mirrors the SQL repository's settlement gate: only a
// pending row can be settled, and the success path credits the balance in
// the same step.
type fakeTransactionRepo struct {
	transactions map[string]*model.Transaction
	balances     map[uuid.UUID]int64
	roles        map[uuid.UUID]model.Role
	credits      int
	settleErr    error
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{
		transactions: make(map[string]*model.Transaction),
		balances:     make(map[uuid.UUID]int64),
		roles:        make(map[uuid.UUID]model.Role),
	}
}

func (f *fakeTransactionRepo) roleOf(id uuid.UUID) model.Role {
	if role, ok := f.roles[id]; ok {
		return role
	}
	return model.RoleUser
}

func (f *fakeTransactionRepo) Create(_ context.Context, txn *model.Transaction) error {
	if f.roleOf(txn.UserID) != model.RoleUser {
		return model.ErrRoleMismatch
	}
	txn.ID = uuid.New()
	txn.Status = model.TransactionPending
	txn.CreatedAt = time.Now()
	cp := *txn
	f.transactions[txn.TransactionID] = &cp
	return nil
}

func (f *fakeTransactionRepo) GetByRef(_ context.Context, ref string) (*model.Transaction, error) {
	t, ok := f.transactions[ref]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTransactionRepo) SettleSuccess(_ context.Context, txn *model.Transaction, responseCode string, payDate *time.Time) (bool, error) {
	if f.settleErr != nil {
		return false, f.settleErr
	}
	t, ok := f.transactions[txn.TransactionID]
	if !ok || t.Status != model.TransactionPending {
		return false, nil
	}
	if f.roleOf(t.UserID) != model.RoleUser {
		return false, model.ErrRoleMismatch
	}
	t.Status = model.TransactionSuccess
	t.ResponseCode = responseCode
	t.TransactionDate = payDate
	f.balances[t.UserID] += t.Amount
	f.credits++
	return true, nil
}

func (f *fakeTransactionRepo) SettleFailed(_ context.Context, txn *model.Transaction, responseCode string, payDate *time.Time) (bool, error) {
	t, ok := f.transactions[txn.TransactionID]
	if !ok || t.Status != model.TransactionPending {
		return false, nil
	}
	t.Status = model.TransactionFailed
	t.ResponseCode = responseCode
	t.TransactionDate = payDate
	return true, nil
}

type fakeIdemStore struct {
	values map[string][]byte
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{values: make(map[string][]byte)}
}

func (f *fakeIdemStore) CheckAndSetIdempotency(_ context.Context, key string, _ time.Duration) ([]byte, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (f *fakeIdemStore) MarkIdempotencyComplete(_ context.Context, key string, response []byte, _ time.Duration) error {
	f.values[key] = response
	return nil
}

func (f *fakeIdemStore) MarkIdempotencyFailed(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

type TransactionServiceTestSuite struct {
	suite.Suite
	repo    *fakeTransactionRepo
	idem    *fakeIdemStore
	service *TransactionService
	userID  uuid.UUID
}

func TestTransactionServiceSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}

func (s *TransactionServiceTestSuite) SetupTest() {
	s.repo = newFakeTransactionRepo()
	s.idem = newFakeIdemStore()
	s.userID = uuid.New()
	s.service = NewTransactionService(s.repo, s.idem, nil, config.VNPayConfig{
		TmnCode:    "TESTCODE",
		HashSecret: testHashSecret,
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8000/api/v1/transactions/vnpay_return",
	})
	s.service.now = func() time.Time {
		return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	}
}

func (s *TransactionServiceTestSuite) initiate(orderID string) *types.InitiatePaymentResponse {
	res, err := s.service.Initiate(s.T().Context(), s.userID, &types.InitiatePaymentRequest{
		Amount:    50000,
		OrderID:   orderID,
		OrderInfo: "Wallet top up",
	}, "203.0.113.7", "")
	s.Require().NoError(err)
	return res
}

// callbackParams builds a signed gateway callback for the given reference.
func (s *TransactionServiceTestSuite) callbackParams(ref, responseCode string) map[string]string {
	params := map[string]string{
		vnpay.FieldTmnCode:      "TESTCODE",
		vnpay.FieldAmount:       "5000000",
		vnpay.FieldTxnRef:       ref,
		vnpay.FieldResponseCode: responseCode,
		vnpay.FieldPayDate:      "20240115103500",
	}
	params[vnpay.FieldSecureHash] = vnpay.Sign(params, testHashSecret)
	return params
}

func (s *TransactionServiceTestSuite) TestInitiateCreatesPendingTransaction() {
	res := s.initiate("ORDER42")

	s.True(strings.HasPrefix(res.TransactionID, "ORDER42_20240115103000_"))
	s.Len(res.TransactionID, len("ORDER42_20240115103000_")+8)
	s.True(strings.HasPrefix(res.PaymentURL, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?"))
	s.Contains(res.PaymentURL, "vnp_Amount=5000000") // 50000 VND in minor units

	txn := s.repo.transactions[res.TransactionID]
	s.Require().NotNil(txn)
	s.Equal(model.TransactionPending, txn.Status)
	s.Equal(s.userID, txn.UserID)
}

func (s *TransactionServiceTestSuite) TestInitiateRefsAreUniquePerAttempt() {
	// The fixed clock pins both attempts to the same second; the refs must
	// still differ so neither insert hits the unique index.
	first := s.initiate("ORDER42")
	second := s.initiate("ORDER42")

	s.NotEqual(first.TransactionID, second.TransactionID)
	s.Len(s.repo.transactions, 2)
}

func (s *TransactionServiceTestSuite) TestInitiateRejectsNonUserRole() {
	doctor := uuid.New()
	s.repo.roles[doctor] = model.RoleDoctor

	_, err := s.service.Initiate(s.T().Context(), doctor, &types.InitiatePaymentRequest{
		Amount: 100, OrderID: "ORDER1", OrderInfo: "x",
	}, "", "")
	s.ErrorIs(err, model.ErrRoleMismatch)
	s.Empty(s.repo.transactions)
}

func (s *TransactionServiceTestSuite) TestInitiateRejectsBadInput() {
	_, err := s.service.Initiate(s.T().Context(), s.userID, &types.InitiatePaymentRequest{
		Amount: 0, OrderID: "ORDER42", OrderInfo: "x",
	}, "", "")
	s.ErrorIs(err, model.ErrInvalidInput)

	_, err = s.service.Initiate(s.T().Context(), s.userID, &types.InitiatePaymentRequest{
		Amount: 100, OrderID: "bad order!", OrderInfo: "x",
	}, "", "")
	s.ErrorIs(err, model.ErrInvalidInput)
}

func (s *TransactionServiceTestSuite) TestInitiateIdempotency() {
	res, err := s.service.Initiate(s.T().Context(), s.userID, &types.InitiatePaymentRequest{
		Amount: 100, OrderID: "ORDER1", OrderInfo: "x",
	}, "", "idem-key-1")
	s.Require().NoError(err)

	again, err := s.service.Initiate(s.T().Context(), s.userID, &types.InitiatePaymentRequest{
		Amount: 100, OrderID: "ORDER1", OrderInfo: "x",
	}, "", "idem-key-1")
	s.Require().NoError(err)
	s.Equal(res.TransactionID, again.TransactionID)
	s.Len(s.repo.transactions, 1, "duplicate request must not create a second transaction")
}

func (s *TransactionServiceTestSuite) TestReconcileSuccessCreditsOnce() {
	res := s.initiate("ORDER42")
	params := s.callbackParams(res.TransactionID, "00")

	outcome, err := s.service.Reconcile(s.T().Context(), params)
	s.Require().NoError(err)
	s.Equal(OutcomeSuccess, outcome)
	s.EqualValues(50000, s.repo.balances[s.userID])
	s.Equal(1, s.repo.credits)
	s.Equal(model.TransactionSuccess, s.repo.transactions[res.TransactionID].Status)

	// Replaying the identical callback must be a no-op.
	outcome, err = s.service.Reconcile(s.T().Context(), params)
	s.Require().NoError(err)
	s.Equal(OutcomeIgnored, outcome)
	s.EqualValues(50000, s.repo.balances[s.userID], "replay must not double-credit")
	s.Equal(1, s.repo.credits)
}

func (s *TransactionServiceTestSuite) TestReconcileFailureCodeNoCredit() {
	res := s.initiate("ORDER42")
	params := s.callbackParams(res.TransactionID, "24")

	outcome, err := s.service.Reconcile(s.T().Context(), params)
	s.Require().NoError(err)
	s.Equal(OutcomeFailed, outcome)
	s.Equal(model.TransactionFailed, s.repo.transactions[res.TransactionID].Status)
	s.Zero(s.repo.balances[s.userID])

	// A late success callback cannot resurrect a failed transaction.
	outcome, err = s.service.Reconcile(s.T().Context(), s.callbackParams(res.TransactionID, "00"))
	s.Require().NoError(err)
	s.Equal(OutcomeIgnored, outcome)
	s.Zero(s.repo.balances[s.userID])
}

func (s *TransactionServiceTestSuite) TestReconcileBadSignatureLeavesPending() {
	res := s.initiate("ORDER42")
	params := s.callbackParams(res.TransactionID, "00")
	params[vnpay.FieldAmount] = "9999999" // tampered after signing

	outcome, err := s.service.Reconcile(s.T().Context(), params)
	s.ErrorIs(err, model.ErrSignatureInvalid)
	s.Equal(OutcomeSignatureInvalid, outcome)
	s.Equal(model.TransactionPending, s.repo.transactions[res.TransactionID].Status)
	s.Zero(s.repo.balances[s.userID])

	// The gateway may retry with a valid signature afterwards.
	outcome, err = s.service.Reconcile(s.T().Context(), s.callbackParams(res.TransactionID, "00"))
	s.Require().NoError(err)
	s.Equal(OutcomeSuccess, outcome)
}

func (s *TransactionServiceTestSuite) TestReconcileUnknownReference() {
	outcome, err := s.service.Reconcile(s.T().Context(), s.callbackParams("NOPE_20240101000000", "00"))
	s.ErrorIs(err, model.ErrNotFound)
	s.Equal(OutcomeNotFound, outcome)
}

func (s *TransactionServiceTestSuite) TestReconcileMissingReference() {
	outcome, err := s.service.Reconcile(s.T().Context(), map[string]string{})
	s.ErrorIs(err, model.ErrInvalidInput)
	s.Equal(OutcomeNotFound, outcome)
}

func (s *TransactionServiceTestSuite) TestReconcileSettlementErrorIsNotIgnored() {
	res := s.initiate("ORDER42")
	s.repo.settleErr = errors.New("db connection lost")

	outcome, err := s.service.Reconcile(s.T().Context(), s.callbackParams(res.TransactionID, "00"))
	s.Require().Error(err)
	s.NotEqual(OutcomeIgnored, outcome, "a failed settlement is not a settled duplicate")
	s.Equal(Outcome(""), outcome)
	s.Equal(model.TransactionPending, s.repo.transactions[res.TransactionID].Status)
	s.Zero(s.repo.balances[s.userID])

	// The gateway retries; once the database recovers the credit lands.
	s.repo.settleErr = nil
	outcome, err = s.service.Reconcile(s.T().Context(), s.callbackParams(res.TransactionID, "00"))
	s.Require().NoError(err)
	s.Equal(OutcomeSuccess, outcome)
	s.EqualValues(50000, s.repo.balances[s.userID])
}

func (s *TransactionServiceTestSuite) TestReconcileRoleChangeDoesNotCredit() {
	res := s.initiate("ORDER42")
	// Account promoted to doctor between initiation and callback.
	s.repo.roles[s.userID] = model.RoleDoctor

	outcome, err := s.service.Reconcile(s.T().Context(), s.callbackParams(res.TransactionID, "00"))
	s.ErrorIs(err, model.ErrRoleMismatch)
	s.Equal(Outcome(""), outcome)
	s.Zero(s.repo.balances[s.userID])
	s.Equal(model.TransactionPending, s.repo.transactions[res.TransactionID].Status)
}

func (s *TransactionServiceTestSuite) TestVNPayReturnAnswers500OnInternalError() {
	res := s.initiate("ORDER42")
	s.repo.settleErr = errors.New("db connection lost")

	handler := NewTransactionHandler(s.service, nil)

	query := url.Values{}
	for k, v := range s.callbackParams(res.TransactionID, "00") {
		query.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/vnpay_return?"+query.Encode(), nil)
	rec := httptest.NewRecorder()

	handler.VNPayReturn(rec, req)

	s.Equal(http.StatusInternalServerError, rec.Code,
		"a settlement fault must not be reported to the gateway as settled")
	s.Contains(rec.Body.String(), "Internal error")
}
