package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stellar/go/keypair"

	"github.com/trustbridge/walletd/internal/domain"
	"github.com/trustbridge/walletd/internal/gateway"
)

type fakeLedger struct {
	balances     []domain.BalanceEntry
	balanceErr   error
	balanceCalls atomic.Int32

	paymentHash  string
	paymentErr   error
	paymentCalls atomic.Int32
	lastPayment  struct {
		destination, amount, memo string
	}

	swapResult gateway.SwapResult
	swapErr    error

	fundOK    bool
	fundErr   error
	fundCalls atomic.Int32

	mu sync.Mutex
}

func (f *fakeLedger) LoadBalances(ctx context.Context, address string) ([]domain.BalanceEntry, error) {
	f.balanceCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return f.balances, nil
}

func (f *fakeLedger) SubmitPayment(ctx context.Context, secret, destination, amount, memo string) (string, error) {
	f.paymentCalls.Add(1)
	f.mu.Lock()
	f.lastPayment.destination = destination
	f.lastPayment.amount = amount
	f.lastPayment.memo = memo
	f.mu.Unlock()
	if f.paymentErr != nil {
		return "", f.paymentErr
	}
	return f.paymentHash, nil
}

func (f *fakeLedger) SubmitSwap(ctx context.Context, secret, sendAmount, minReceiveAmount string) (gateway.SwapResult, error) {
	if f.swapErr != nil {
		return gateway.SwapResult{}, f.swapErr
	}
	return f.swapResult, nil
}

func (f *fakeLedger) FundViaFaucet(ctx context.Context, address string) (bool, error) {
	f.fundCalls.Add(1)
	return f.fundOK, f.fundErr
}

type memoryRepo struct {
	mu     sync.Mutex
	record *WalletRecord
}

func (m *memoryRepo) Load(ctx context.Context) (WalletRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return WalletRecord{}, ErrNotFound
	}
	return *m.record, nil
}

func (m *memoryRepo) Save(ctx context.Context, record WalletRecord) error {
	m.mu.Lock()
	m.record = &record
	m.mu.Unlock()
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context) error {
	m.mu.Lock()
	m.record = nil
	m.mu.Unlock()
	return nil
}

func newTestStore(t *testing.T, ledger *fakeLedger, repo *memoryRepo) *Store {
	t.Helper()
	if repo == nil {
		repo = &memoryRepo{}
	}
	store := NewStore(ledger, repo, time.Hour, time.Millisecond)
	t.Cleanup(store.StopAutoRefresh)
	return store
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCreateWalletConnectsAndPersists(t *testing.T) {
	ledger := &fakeLedger{}
	repo := &memoryRepo{}
	store := newTestStore(t, ledger, repo)

	status, err := store.CreateWallet(context.Background())
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if !status.Connected {
		t.Fatal("status not connected")
	}
	if !strings.HasPrefix(status.PublicKey, "G") {
		t.Errorf("PublicKey = %q, want G... address", status.PublicKey)
	}

	rec, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if rec.PublicKey != status.PublicKey {
		t.Errorf("persisted key %q != session key %q", rec.PublicKey, status.PublicKey)
	}
	if !strings.HasPrefix(rec.SecretKey, "S") {
		t.Errorf("SecretKey = %q, want S... seed", rec.SecretKey)
	}

	// Connecting starts the refresh loop, which runs once right away.
	waitFor(t, func() bool { return ledger.balanceCalls.Load() > 0 },
		"auto refresh never ran after connect")
}

func TestImportWalletDerivesAddress(t *testing.T) {
	kp := keypair.MustRandom()
	store := newTestStore(t, &fakeLedger{}, nil)

	status, err := store.ImportWallet(context.Background(), kp.Seed())
	if err != nil {
		t.Fatalf("ImportWallet: %v", err)
	}
	if status.PublicKey != kp.Address() {
		t.Errorf("PublicKey = %q, want %q", status.PublicKey, kp.Address())
	}
}

func TestImportWalletInvalidSecretLeavesStateUntouched(t *testing.T) {
	store := newTestStore(t, &fakeLedger{}, nil)

	before, err := store.CreateWallet(context.Background())
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	_, err = store.ImportWallet(context.Background(), "not-a-secret")
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}

	after := store.Status()
	if !after.Connected || after.PublicKey != before.PublicKey {
		t.Errorf("prior session was disturbed: %+v", after)
	}
	if after.LastError == "" {
		t.Error("lastError not set after failed import")
	}
}

func TestConnectPasskeyWalletRejectsMismatchedAddress(t *testing.T) {
	kp := keypair.MustRandom()
	other := keypair.MustRandom()
	store := newTestStore(t, &fakeLedger{}, nil)

	if _, err := store.ConnectPasskeyWallet(context.Background(), other.Address(), kp.Seed()); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}

	status, err := store.ConnectPasskeyWallet(context.Background(), kp.Address(), kp.Seed())
	if err != nil {
		t.Fatalf("ConnectPasskeyWallet: %v", err)
	}
	if !status.IsPasskey {
		t.Error("IsPasskey = false")
	}
}

func TestDisconnectIsIdempotentAndFailsFastAfter(t *testing.T) {
	repo := &memoryRepo{}
	store := newTestStore(t, &fakeLedger{}, repo)

	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if err := store.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := store.Disconnect(context.Background()); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}

	if _, err := repo.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Error("persisted record survived disconnect")
	}
	if err := store.RefreshBalance(context.Background()); !errors.Is(err, ErrNoWallet) {
		t.Errorf("RefreshBalance err = %v, want ErrNoWallet", err)
	}
	if result := store.SendMoney(context.Background(), "G", "1", ""); result.Error != ErrNoWallet.Error() {
		t.Errorf("SendMoney error = %q, want %q", result.Error, ErrNoWallet.Error())
	}
}

func TestRestoreRehydratesPersistedSession(t *testing.T) {
	kp := keypair.MustRandom()
	repo := &memoryRepo{record: &WalletRecord{
		PublicKey: kp.Address(),
		SecretKey: kp.Seed(),
		IsPasskey: true,
	}}
	store := newTestStore(t, &fakeLedger{}, repo)

	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	status := store.Status()
	if !status.Connected || status.PublicKey != kp.Address() || !status.IsPasskey {
		t.Errorf("status = %+v", status)
	}
}

func TestRestoreWithoutRecordStaysDisconnected(t *testing.T) {
	store := newTestStore(t, &fakeLedger{}, nil)
	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if store.Status().Connected {
		t.Error("connected without a persisted record")
	}
}

func TestRefreshBalanceReplacesList(t *testing.T) {
	ledger := &fakeLedger{balances: []domain.BalanceEntry{
		{Asset: "XLM", Amount: "100", AssetType: "native"},
		{Asset: "USDC", Amount: "5", AssetType: "credit_alphanum4"},
	}}
	store := newTestStore(t, ledger, nil)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	if err := store.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}

	ledger.mu.Lock()
	ledger.balances = []domain.BalanceEntry{{Asset: "XLM", Amount: "42", AssetType: "native"}}
	ledger.mu.Unlock()

	if err := store.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("second RefreshBalance: %v", err)
	}
	status := store.Status()
	if len(status.Balances) != 1 || status.Balances[0].Amount != "42" {
		t.Errorf("balances = %+v, want full replace", status.Balances)
	}
}

func TestRefreshBalanceFailurePreservesState(t *testing.T) {
	ledger := &fakeLedger{balances: []domain.BalanceEntry{
		{Asset: "XLM", Amount: "100", AssetType: "native"},
	}}
	store := newTestStore(t, ledger, nil)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if err := store.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}

	ledger.mu.Lock()
	ledger.balanceErr = errors.New("connection reset")
	ledger.mu.Unlock()

	if err := store.RefreshBalance(context.Background()); err == nil {
		t.Fatal("expected refresh to fail")
	}
	status := store.Status()
	if len(status.Balances) != 1 || status.Balances[0].Amount != "100" {
		t.Errorf("balances = %+v, want previous state preserved", status.Balances)
	}
	if status.LastError == "" {
		t.Error("lastError not set")
	}
}

func TestSendMoneyValidatesBeforeNetwork(t *testing.T) {
	ledger := &fakeLedger{paymentHash: "abc123"}
	store := newTestStore(t, ledger, nil)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	dest := keypair.MustRandom().Address()

	tests := []struct {
		name, destination, amount, wantErr string
	}{
		{"bad address", "not-an-address", "1", "Invalid destination address"},
		{"zero amount", dest, "0", "Amount must be greater than zero"},
		{"negative amount", dest, "-5", "Amount must be greater than zero"},
		{"unparseable amount", dest, "ten", "Amount must be greater than zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := store.SendMoney(context.Background(), tt.destination, tt.amount, "")
			if result.Success || result.Error != tt.wantErr {
				t.Errorf("result = %+v, want error %q", result, tt.wantErr)
			}
		})
	}
	if got := ledger.paymentCalls.Load(); got != 0 {
		t.Errorf("paymentCalls = %d, want 0 before validation passes", got)
	}

	result := store.SendMoney(context.Background(), dest, "12.5", "rent")
	if !result.Success || result.Hash != "abc123" {
		t.Fatalf("result = %+v", result)
	}
	ledger.mu.Lock()
	if ledger.lastPayment.destination != dest || ledger.lastPayment.amount != "12.5" || ledger.lastPayment.memo != "rent" {
		t.Errorf("payment args = %+v", ledger.lastPayment)
	}
	ledger.mu.Unlock()
}

func TestSendMoneyMapsGatewayRejection(t *testing.T) {
	ledger := &fakeLedger{paymentErr: &gateway.Error{
		Kind:    gateway.FailureRejection,
		Message: "Insufficient balance to complete the transaction",
	}}
	store := newTestStore(t, ledger, nil)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	result := store.SendMoney(context.Background(), keypair.MustRandom().Address(), "1", "")
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "Insufficient balance to complete the transaction" {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestSwapAssetPair(t *testing.T) {
	ledger := &fakeLedger{swapResult: gateway.SwapResult{Hash: "swap1", ReceivedAmount: "3.14"}}
	store := newTestStore(t, ledger, nil)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	outcome := store.SwapAssetPair(context.Background(), "10", "3")
	if !outcome.Success || outcome.Hash != "swap1" || outcome.ReceivedAmount != "3.14" {
		t.Errorf("outcome = %+v", outcome)
	}

	outcome = store.SwapAssetPair(context.Background(), "0", "1")
	if outcome.Success || outcome.Error != "Amount must be greater than zero" {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestMaxSwapAmountReservesNetworkFee(t *testing.T) {
	ledger := &fakeLedger{balances: []domain.BalanceEntry{
		{Asset: "USDC", Amount: "50", AssetType: "credit_alphanum4"},
		{Asset: "XLM", Amount: "5.5", AssetType: "native"},
	}}
	store := newTestStore(t, ledger, nil)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if err := store.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}

	if got := store.MaxSwapAmount(); got != "4.5" {
		t.Errorf("MaxSwapAmount = %q, want 4.5", got)
	}

	ledger.mu.Lock()
	ledger.balances = []domain.BalanceEntry{{Asset: "XLM", Amount: "0.5", AssetType: "native"}}
	ledger.mu.Unlock()
	if err := store.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}
	if got := store.MaxSwapAmount(); got != "0" {
		t.Errorf("MaxSwapAmount = %q, want 0 when below the reserve", got)
	}
}

func TestFundAccountSchedulesDelayedRefresh(t *testing.T) {
	ledger := &fakeLedger{fundOK: true}
	store := newTestStore(t, ledger, nil)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	waitFor(t, func() bool { return ledger.balanceCalls.Load() > 0 },
		"initial refresh never ran")
	before := ledger.balanceCalls.Load()

	if err := store.FundAccount(context.Background()); err != nil {
		t.Fatalf("FundAccount: %v", err)
	}
	waitFor(t, func() bool { return ledger.balanceCalls.Load() > before },
		"delayed refresh never ran after funding")
}

func TestFundAccountDeclined(t *testing.T) {
	ledger := &fakeLedger{fundOK: false}
	store := newTestStore(t, ledger, nil)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	if err := store.FundAccount(context.Background()); err == nil {
		t.Fatal("expected error when the faucet declines")
	}
	if store.Status().LastError == "" {
		t.Error("lastError not set")
	}
}

func TestAutoRefreshSingleTimer(t *testing.T) {
	ledger := &fakeLedger{}
	repo := &memoryRepo{}
	store := NewStore(ledger, repo, 10*time.Millisecond, time.Millisecond)
	t.Cleanup(store.StopAutoRefresh)
	if _, err := store.CreateWallet(context.Background()); err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	// Restarting replaces the timer rather than stacking a second one.
	store.StartAutoRefresh()
	store.StartAutoRefresh()

	waitFor(t, func() bool { return ledger.balanceCalls.Load() >= 3 },
		"refresh loop never ticked")

	store.StopAutoRefresh()
	after := ledger.balanceCalls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := ledger.balanceCalls.Load(); got != after {
		t.Errorf("refresh calls grew from %d to %d after a single Stop", after, got)
	}

	// Stopping again with no timer is safe.
	store.StopAutoRefresh()
}
