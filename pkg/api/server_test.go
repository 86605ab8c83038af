package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beans-labs/vesting-manager/internal/logger"
	"github.com/beans-labs/vesting-manager/pkg/config"
	"github.com/beans-labs/vesting-manager/pkg/ratelimit"
	"github.com/beans-labs/vesting-manager/pkg/storage"
	"github.com/beans-labs/vesting-manager/pkg/token"
	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

const (
	testFactory   = vesting.Address("factory")
	testRecipient = vesting.Address("recipient")
	testSecret    = "test-hmac-secret"
)

type fakeClock struct{ t uint64 }

func (c *fakeClock) Now() uint64 { return c.t }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ledger := token.NewMemoryLedger()
	otherTokens := token.NewRegistry()
	log := logger.NewLogger("error")
	mgr := vesting.New(db, ledger, &fakeClock{t: 1000}, nil, log)

	if err := mgr.Init(context.Background(), testFactory, "denom"); err != nil {
		t.Fatalf("init: %v", err)
	}
	ledger.Mint(testFactory, big.NewInt(1_000_000))

	limiter := ratelimit.New(config.RateLimiterConfig{Enabled: false})
	return New(mgr, limiter, nil, otherTokens, nil, []byte(testSecret), log, 0)
}

func signedRequest(t *testing.T, method, path string, body []byte, caller vesting.Address) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Caller", string(caller))

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(method + path + string(caller)))
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestRecipientQueryRoutesAreReachable(t *testing.T) {
	s := newTestServer(t)

	createBody, _ := json.Marshal(createVestingRequest{
		Recipient:           string(testRecipient),
		StartTimestamp:      1000,
		EndTimestamp:        2000,
		InitialUnlock:       "0",
		CliffAmount:         "0",
		ReleaseIntervalSecs: 100,
		LinearVestAmount:    "1000",
	})
	req := signedRequest(t, http.MethodPost, "/v1/vestings", createBody, testFactory)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create vesting: status=%d body=%s", w.Code, w.Body.String())
	}

	cases := []struct {
		name string
		path string
	}{
		{"recipients sliced", "/v1/recipients/sliced?from=0&to=1"},
		{"recipients len", "/v1/recipients/count"},
		{"is recipient", "/v1/recipients/" + string(testRecipient)},
		{"recipient vestings sliced", "/v1/recipients/" + string(testRecipient) + "/vestings/sliced?from=0&to=1"},
		{"recipient vestings len", "/v1/recipients/" + string(testRecipient) + "/vestings/count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("%s: status=%d body=%s", tc.name, w.Code, w.Body.String())
			}
		})
	}
}

func TestWithdrawOtherTokenRoute(t *testing.T) {
	s := newTestServer(t)

	otherLedger := s.otherTokens.Ledger("other-denom")
	otherLedger.Mint(vesting.SelfAddress, big.NewInt(500))

	body, _ := json.Marshal(withdrawOtherTokenRequest{Other: "other-denom"})
	req := signedRequest(t, http.MethodPost, "/v1/admin/withdraw-other", body, testFactory)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("withdraw other token: status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Withdrawn string `json:"withdrawn"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Withdrawn != "500" {
		t.Fatalf("expected withdrawn=500, got %s", resp.Withdrawn)
	}

	balance, err := otherLedger.Balance(context.Background(), vesting.SelfAddress)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected other ledger drained, got %s", balance)
	}
}
