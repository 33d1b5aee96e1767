package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/roach88/taskstore/internal/identity"
	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
	"github.com/roach88/taskstore/internal/metrics"
	"github.com/roach88/taskstore/internal/store"
	"github.com/roach88/taskstore/internal/task"
	"github.com/roach88/taskstore/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t       *testing.T
	server  *Server
	program *task.Program
	ledger  ledger.Ledger
	alice   *testutil.Actor
	bob     *testutil.Actor
}

func newHarness(t *testing.T, faucet bool) *harness {
	t.Helper()
	l, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	p := task.New(l, identity.Ed25519Verifier{}, task.Options{Logger: logger, Metrics: metrics.New(reg)})

	ids := testutil.NewSequentialIDs()
	h := &harness{
		t:       t,
		program: p,
		ledger:  l,
		server: New(p, l, Options{
			Faucet:     faucet,
			MaxAirdrop: 100_000_000,
			Gatherer:   reg,
			Logger:     logger,
		}),
		alice: testutil.NewActor("alice", ir.DefaultProgramID, ids),
		bob:   testutil.NewActor("bob", ir.DefaultProgramID, ids),
	}
	ctx := context.Background()
	require.NoError(t, ledger.Fund(ctx, l, h.alice.Identity(), 5*p.Deposit()))
	require.NoError(t, ledger.Fund(ctx, l, h.bob.Identity(), 5*p.Deposit()))
	return h
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, req)
	return w
}

func (h *harness) submit(req ir.SignedRequest) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, "/v1/transactions", req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestTransactionLifecycle(t *testing.T) {
	h := newHarness(t, false)

	w := h.submit(h.alice.AddTask("buy milk"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	receipt := decode[task.Receipt](t, w)
	assert.Equal(t, ir.InstructionAddTask, receipt.Instruction)
	assert.Equal(t, h.program.Deposit(), receipt.Lamports)

	w = h.do(http.MethodGet, "/v1/tasks/"+receipt.Task.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[TaskResponse](t, w)
	assert.Equal(t, receipt.Task, got.Address)
	assert.Equal(t, h.alice.Identity(), got.Owner)
	assert.Equal(t, "buy milk", got.Content)
	assert.False(t, got.Marked)

	w = h.submit(h.alice.MarkTask(receipt.Task))
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[TaskResponse](t, h.do(http.MethodGet, "/v1/tasks/"+receipt.Task.String(), nil))
	assert.True(t, got.Marked)

	w = h.submit(h.alice.RemoveTask(receipt.Task))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, h.program.Deposit(), decode[task.Receipt](t, w).Lamports)

	w = h.do(http.MethodGet, "/v1/tasks/"+receipt.Task.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactionErrorStatuses(t *testing.T) {
	h := newHarness(t, false)
	w := h.submit(h.alice.AddTask("buy milk"))
	require.Equal(t, http.StatusOK, w.Code)
	addr := decode[task.Receipt](t, w).Task

	tampered := h.alice.AddTask("a")
	tampered.Content = "b"
	missing, _ := h.program.Address(h.alice.Identity(), "nothing")
	unknown := h.alice.MarkTask(addr)
	unknown.Instruction = "rename_task"

	tests := []struct {
		name   string
		req    ir.SignedRequest
		status int
		code   task.ErrorCode
	}{
		{"duplicate", h.alice.AddTask("buy milk"), http.StatusConflict, task.ErrCodeDuplicateRecord},
		{"not owner", h.bob.MarkTask(addr), http.StatusUnauthorized, task.ErrCodeUnauthorized},
		{"bad signature", tampered, http.StatusUnauthorized, task.ErrCodeInvalidSignature},
		{"too large", h.alice.AddTask(strings.Repeat("x", 201)), http.StatusRequestEntityTooLarge, task.ErrCodeContentTooLarge},
		{"missing", h.alice.RemoveTask(missing), http.StatusNotFound, task.ErrCodeRecordNotFound},
		{"unknown instruction", unknown, http.StatusBadRequest, task.ErrCodeInvalidInstruction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.submit(tt.req)
			assert.Equal(t, tt.status, w.Code)
			body := decode[errorBody](t, w)
			assert.Equal(t, string(tt.code), body.Error.Code)
		})
	}
}

func TestInsufficientFundsIsPaymentRequired(t *testing.T) {
	h := newHarness(t, false)
	carol := testutil.NewActor("carol", ir.DefaultProgramID, testutil.NewSequentialIDs())

	w := h.submit(carol.AddTask("buy milk"))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, string(task.ErrCodeInsufficientFunds), decode[errorBody](t, w).Error.Code)
}

func TestMalformedRequests(t *testing.T) {
	h := newHarness(t, true)

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/v1/tasks/zz", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/v1/accounts/1234", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/v1/accounts/"+h.alice.Identity().String()+"/airdrop", map[string]any{"lamports": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountBalance(t *testing.T) {
	h := newHarness(t, false)

	w := h.do(http.MethodGet, "/v1/accounts/"+h.alice.Identity().String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[AccountResponse](t, w)
	assert.Equal(t, h.alice.Identity(), got.Identity)
	assert.Equal(t, 5*h.program.Deposit(), got.Balance)

	unknown := ir.Identity{9}
	w = h.do(http.MethodGet, "/v1/accounts/"+unknown.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(0), decode[AccountResponse](t, w).Balance)
}

func TestAirdrop(t *testing.T) {
	h := newHarness(t, true)
	id := ir.Identity{7}
	path := "/v1/accounts/" + id.String() + "/airdrop"

	w := h.do(http.MethodPost, path, AirdropRequest{Lamports: 1000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, uint64(1000), decode[AccountResponse](t, w).Balance)

	w = h.do(http.MethodPost, path, AirdropRequest{Lamports: 500})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(1500), decode[AccountResponse](t, w).Balance)

	w = h.do(http.MethodPost, path, AirdropRequest{Lamports: 100_000_001})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAirdropDisabled(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodPost, "/v1/accounts/"+ir.Identity{7}.String()+"/airdrop", AirdropRequest{Lamports: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAirdropRateLimit(t *testing.T) {
	h := newHarness(t, true)
	h.server = New(h.program, h.ledger, Options{
		Faucet:       true,
		MaxAirdrop:   1000,
		AirdropRate:  rate.Every(time.Hour),
		AirdropBurst: 2,
	})
	path := "/v1/accounts/" + ir.Identity{7}.String() + "/airdrop"

	for i := 0; i < 2; i++ {
		w := h.do(http.MethodPost, path, AirdropRequest{Lamports: 10})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w := h.do(http.MethodPost, path, AirdropRequest{Lamports: 10})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode[errorBody](t, w).Error.Code)

	balance, err := ledger.BalanceOf(context.Background(), h.ledger, ir.Identity{7})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), balance)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, false)
	require.Equal(t, http.StatusOK, h.submit(h.alice.AddTask("buy milk")).Code)

	w := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `taskstore_instructions_total{instruction="add_task",result="ok"} 1`)
}

func TestStatusForCoversEveryCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFor(task.ErrCodeCorruptRecord))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(task.ErrCodeInvalidSignature))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	h := newHarness(t, false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Serve(ctx, ln, time.Second) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
