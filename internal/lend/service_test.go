package lend

import (
	"context"
	"errors"
	"testing"
)

type fakeAPI struct {
	meta      PoolMeta
	metaErr   error
	oracle    Oracle
	positions Positions

	builtAmount string
	builtAsset  string
	envelope    string
	submitted   string
	submitResp  SubmitResponse
}

func (f *fakeAPI) PoolMeta(ctx context.Context, poolID string) (PoolMeta, error) {
	return f.meta, f.metaErr
}

func (f *fakeAPI) PoolOracle(ctx context.Context, poolID string) (Oracle, error) {
	return f.oracle, nil
}

func (f *fakeAPI) UserPositions(ctx context.Context, poolID, userAddress string) (Positions, error) {
	return f.positions, nil
}

func (f *fakeAPI) BuildSupply(ctx context.Context, poolID, from, assetAddress, amount string) (string, error) {
	f.builtAsset = assetAddress
	f.builtAmount = amount
	return f.envelope, nil
}

func (f *fakeAPI) Submit(ctx context.Context, poolID, signedXDR string) (SubmitResponse, error) {
	f.submitted = signedXDR
	return f.submitResp, nil
}

type fakeSigner struct {
	signed string
	err    error
}

func (f *fakeSigner) SignEnvelope(secret, envelopeXDR string) (string, error) {
	return f.signed, f.err
}

type fakeSession struct{}

func (fakeSession) PublicKey() (string, error)     { return "GUSER", nil }
func (fakeSession) SigningSecret() (string, error) { return "SSECRET", nil }

func validMeta() PoolMeta {
	return PoolMeta{
		ID:       "pool1",
		Name:     "Test Pool",
		Backstop: "CBACKSTOP",
		Oracle:   "CORACLE",
	}
}

func TestPoolInfo(t *testing.T) {
	api := &fakeAPI{meta: validMeta(), oracle: Oracle{Address: "CORACLE", Decimals: 7}}
	svc := NewService(api, &fakeSigner{}, fakeSession{}, "pool1")

	info, err := svc.PoolInfo(context.Background())
	if err != nil {
		t.Fatalf("PoolInfo: %v", err)
	}
	if info.Meta.Name != "Test Pool" || info.Oracle.Decimals != 7 {
		t.Errorf("info = %+v", info)
	}
}

func TestPoolInfoRejectsInvalidPool(t *testing.T) {
	api := &fakeAPI{meta: PoolMeta{ID: "pool1"}}
	svc := NewService(api, &fakeSigner{}, fakeSession{}, "pool1")

	_, err := svc.PoolInfo(context.Background())
	if !errors.Is(err, ErrNotLendingPool) {
		t.Fatalf("err = %v, want ErrNotLendingPool", err)
	}
}

func TestUserStandingComputesNetWorth(t *testing.T) {
	api := &fakeAPI{positions: Positions{TotalSupplied: 250, TotalBorrowed: 100, BorrowLimit: 150}}
	svc := NewService(api, &fakeSigner{}, fakeSession{}, "pool1")

	standing, err := svc.UserStanding(context.Background())
	if err != nil {
		t.Fatalf("UserStanding: %v", err)
	}
	if standing.NetWorth != 150 {
		t.Errorf("NetWorth = %v, want 150", standing.NetWorth)
	}
}

func TestSupplyCollateralScalesToBaseUnits(t *testing.T) {
	api := &fakeAPI{envelope: "unsigned", submitResp: SubmitResponse{Hash: "h1"}}
	svc := NewService(api, &fakeSigner{signed: "signed"}, fakeSession{}, "pool1")

	resp, err := svc.SupplyCollateral(context.Background(), "CASSET", "12.5")
	if err != nil {
		t.Fatalf("SupplyCollateral: %v", err)
	}
	if api.builtAmount != "125000000" {
		t.Errorf("built amount = %q, want 125000000 base units", api.builtAmount)
	}
	if api.submitted != "signed" {
		t.Errorf("submitted %q, want the locally signed envelope", api.submitted)
	}
	if resp.Hash != "h1" {
		t.Errorf("Hash = %q", resp.Hash)
	}
}

func TestSupplyCollateralRejectsNonPositiveAmounts(t *testing.T) {
	svc := NewService(&fakeAPI{}, &fakeSigner{}, fakeSession{}, "pool1")

	for _, amount := range []string{"0", "-1", "x"} {
		if _, err := svc.SupplyCollateral(context.Background(), "CASSET", amount); err == nil {
			t.Errorf("SupplyCollateral(%q) succeeded, want validation error", amount)
		}
	}
}
