package ledger

import (
	"context"
	"testing"

	"github.com/Trandev/Medlink/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type fakeAccount struct {
	role    model.Role
	balance int64
}

// fakeLedgerRepo applies the same all-or-nothing semantics as the SQL
// implementation against an in-memory account table.
type fakeLedgerRepo struct {
	accounts map[uuid.UUID]*fakeAccount
	payments []model.Payment
	adminID  uuid.UUID
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{accounts: make(map[uuid.UUID]*fakeAccount)}
}

func (f *fakeLedgerRepo) addAccount(role model.Role, balance int64) uuid.UUID {
	id := uuid.New()
	f.accounts[id] = &fakeAccount{role: role, balance: balance}
	if role == model.RoleAdmin && f.adminID == uuid.Nil {
		f.adminID = id
	}
	return id
}

func (f *fakeLedgerRepo) Transfer(_ context.Context, payerID, payeeID uuid.UUID, amount, doctorShare, adminShare int64, serviceType model.ServiceType) (*model.Payment, error) {
	if f.adminID == uuid.Nil {
		return nil, model.ErrNotFound
	}
	payer, ok := f.accounts[payerID]
	if !ok {
		return nil, model.ErrNotFound
	}
	payee, ok := f.accounts[payeeID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if payer.role != model.RoleUser || payee.role != model.RoleDoctor {
		return nil, model.ErrRoleMismatch
	}
	if payer.balance < amount {
		return nil, model.ErrInsufficientFunds
	}

	payer.balance -= amount
	payee.balance += doctorShare
	f.accounts[f.adminID].balance += adminShare

	p := model.Payment{
		ID:          uuid.New(),
		UserID:      payerID,
		DoctorID:    payeeID,
		Amount:      amount,
		DoctorShare: doctorShare,
		AdminShare:  adminShare,
		ServiceType: serviceType,
	}
	f.payments = append(f.payments, p)
	return &p, nil
}

func (f *fakeLedgerRepo) Credit(_ context.Context, userID uuid.UUID, amount int64) (int64, error) {
	acc, ok := f.accounts[userID]
	if !ok {
		return 0, model.ErrNotFound
	}
	if acc.role != model.RoleUser {
		return 0, model.ErrRoleMismatch
	}
	acc.balance += amount
	return acc.balance, nil
}

func (f *fakeLedgerRepo) GetBalance(_ context.Context, userID uuid.UUID) (int64, error) {
	acc, ok := f.accounts[userID]
	if !ok {
		return 0, model.ErrNotFound
	}
	return acc.balance, nil
}

func (f *fakeLedgerRepo) GetUserRole(_ context.Context, userID uuid.UUID) (model.Role, error) {
	acc, ok := f.accounts[userID]
	if !ok {
		return "", model.ErrNotFound
	}
	return acc.role, nil
}

func (f *fakeLedgerRepo) PaymentsForUser(_ context.Context, userID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.payments {
		if p.UserID == userID || p.DoctorID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) AllPayments(_ context.Context) ([]model.Payment, error) {
	return append([]model.Payment(nil), f.payments...), nil
}

func (f *fakeLedgerRepo) total() int64 {
	var sum int64
	for _, acc := range f.accounts {
		sum += acc.balance
	}
	return sum
}

type LedgerServiceTestSuite struct {
	suite.Suite
	repo    *fakeLedgerRepo
	service *LedgerService
	payer   uuid.UUID
	doctor  uuid.UUID
	admin   uuid.UUID
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (s *LedgerServiceTestSuite) SetupTest() {
	s.repo = newFakeLedgerRepo()
	s.payer = s.repo.addAccount(model.RoleUser, 100)
	s.doctor = s.repo.addAccount(model.RoleDoctor, 0)
	s.admin = s.repo.addAccount(model.RoleAdmin, 0)
	s.service = NewLedgerService(s.repo)
}

func (s *LedgerServiceTestSuite) TestTransferSplitsAndConserves() {
	totalBefore := s.repo.total()

	payment, err := s.service.TransferForService(s.T().Context(), s.payer, s.doctor, 50, model.ServiceConsultation)
	s.Require().NoError(err)

	s.EqualValues(50, payment.Amount)
	s.EqualValues(15, payment.DoctorShare)
	s.EqualValues(35, payment.AdminShare)

	s.EqualValues(50, s.repo.accounts[s.payer].balance)
	s.EqualValues(15, s.repo.accounts[s.doctor].balance)
	s.EqualValues(35, s.repo.accounts[s.admin].balance)
	s.Equal(totalBefore, s.repo.total(), "total system balance must be conserved")
	s.Len(s.repo.payments, 1)
}

func (s *LedgerServiceTestSuite) TestTransferShareSplitIsExact() {
	// Amounts that don't divide evenly: remainder goes to the platform.
	for _, amount := range []int64{1, 7, 33, 99} {
		doctorShare, adminShare := Shares(amount)
		s.Equal(amount, doctorShare+adminShare)
		s.Equal(amount*30/100, doctorShare)
	}
}

func (s *LedgerServiceTestSuite) TestTransferInsufficientFunds() {
	_, err := s.service.TransferForService(s.T().Context(), s.payer, s.doctor, 101, model.ServiceVideo)
	s.Require().ErrorIs(err, model.ErrInsufficientFunds)

	s.EqualValues(100, s.repo.accounts[s.payer].balance, "failed transfer must not mutate balances")
	s.EqualValues(0, s.repo.accounts[s.doctor].balance)
	s.Empty(s.repo.payments)
}

func (s *LedgerServiceTestSuite) TestTransferSequentialExhaustion() {
	// Two transfers individually affordable but not jointly: the second
	// must fail once the first has drained the balance.
	_, err := s.service.TransferForService(s.T().Context(), s.payer, s.doctor, 60, model.ServiceMessage)
	s.Require().NoError(err)

	_, err = s.service.TransferForService(s.T().Context(), s.payer, s.doctor, 60, model.ServiceMessage)
	s.Require().ErrorIs(err, model.ErrInsufficientFunds)
	s.Len(s.repo.payments, 1)
}

func (s *LedgerServiceTestSuite) TestTransferInvalidInput() {
	_, err := s.service.TransferForService(s.T().Context(), s.payer, s.doctor, 0, model.ServiceOther)
	s.ErrorIs(err, model.ErrInvalidInput)

	_, err = s.service.TransferForService(s.T().Context(), s.payer, s.doctor, -5, model.ServiceOther)
	s.ErrorIs(err, model.ErrInvalidInput)

	_, err = s.service.TransferForService(s.T().Context(), s.payer, s.doctor, 10, model.ServiceType("massage"))
	s.ErrorIs(err, model.ErrInvalidInput)

	_, err = s.service.TransferForService(s.T().Context(), s.payer, s.payer, 10, model.ServiceOther)
	s.ErrorIs(err, model.ErrInvalidInput)
}

func (s *LedgerServiceTestSuite) TestTransferRoleMismatch() {
	otherUser := s.repo.addAccount(model.RoleUser, 10)

	_, err := s.service.TransferForService(s.T().Context(), s.payer, otherUser, 10, model.ServiceOther)
	s.ErrorIs(err, model.ErrRoleMismatch)

	_, err = s.service.TransferForService(s.T().Context(), s.doctor, otherUser, 10, model.ServiceOther)
	s.ErrorIs(err, model.ErrRoleMismatch)
}

func (s *LedgerServiceTestSuite) TestTransferMissingAccount() {
	_, err := s.service.TransferForService(s.T().Context(), s.payer, uuid.New(), 10, model.ServiceOther)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *LedgerServiceTestSuite) TestCredit() {
	balance, err := s.service.Credit(s.T().Context(), s.payer, 25)
	s.Require().NoError(err)
	s.EqualValues(125, balance)

	_, err = s.service.Credit(s.T().Context(), s.payer, 0)
	s.ErrorIs(err, model.ErrInvalidInput)

	_, err = s.service.Credit(s.T().Context(), s.doctor, 25)
	s.ErrorIs(err, model.ErrRoleMismatch)
}

func (s *LedgerServiceTestSuite) TestPaymentHistoryHidesSharesFromUsers() {
	_, err := s.service.TransferForService(s.T().Context(), s.payer, s.doctor, 50, model.ServiceConsultation)
	s.Require().NoError(err)

	payments, err := s.service.PaymentHistory(s.T().Context(), s.payer)
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	s.Zero(payments[0].DoctorShare)
	s.Zero(payments[0].AdminShare)

	payments, err = s.service.PaymentHistory(s.T().Context(), s.admin)
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	s.EqualValues(15, payments[0].DoctorShare)
	s.EqualValues(35, payments[0].AdminShare)
}

func (s *LedgerServiceTestSuite) TestTopUpRequiresAdmin() {
	_, err := s.service.TopUp(s.T().Context(), s.payer, s.payer, 10)
	s.ErrorIs(err, model.ErrForbidden)

	balance, err := s.service.TopUp(s.T().Context(), s.admin, s.payer, 10)
	s.Require().NoError(err)
	s.EqualValues(110, balance)
}
