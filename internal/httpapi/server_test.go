package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docket/internal/memory"
	"github.com/mesh-intelligence/docket/pkg/ledger"
	"github.com/mesh-intelligence/docket/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	b := memory.NewBackend()
	require.NoError(t, b.Attach(context.Background(), types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { b.Detach() })
	l, err := ledger.New(b, nil)
	require.NoError(t, err)
	return New(l, nil).Router(Config{AllowOrigins: []string{"http://localhost:3000"}})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestContracts(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodGet, "/v1/contracts/case-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "contract not found", decode(t, rec)["error"])

	body := `{"attorney_name":"saul","client_name":"jesse","case_number":"case-1","contract_fee":25000}`
	rec = do(t, r, http.MethodPost, "/v1/contracts", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "case-1", decode(t, rec)["case_number"])

	overwrite := `{"attorney_name":"kim","case_number":"case-1","contract_fee":1}`
	rec = do(t, r, http.MethodPost, "/v1/contracts", overwrite)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodGet, "/v1/contracts/case-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Contract
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "kim", got.AttorneyName)
	assert.EqualValues(t, 1, got.ContractFee)
}

func TestAppointments(t *testing.T) {
	r := newRouter(t)

	body := `{"client_name":"mary","consultation_topic":"legal-advice","start_date":"2024-01-01T10:00:00Z","total_duration":120}`
	rec := do(t, r, http.MethodPost, "/v1/appointments", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "mary", out["client_name"])
	assert.EqualValues(t, 5000, out["consultation_fee"])

	again := `{"client_name":"mary","start_date":"2025-06-01T09:00:00Z","total_duration":30}`
	rec = do(t, r, http.MethodPost, "/v1/appointments", again)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "appointment time is already booked", decode(t, rec)["error"])

	rec = do(t, r, http.MethodGet, "/v1/appointments/mary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var appt types.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &appt))
	assert.Equal(t, "2024-01-01T10:00:00Z", appt.StartDate, "conflict must not overwrite")
	assert.EqualValues(t, 5000, appt.ConsultationFee)

	rec = do(t, r, http.MethodGet, "/v1/appointments/john", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKeysWithSlash(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodPost, "/v1/contracts", `{"case_number":"2024/17","attorney_name":"saul"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, r, http.MethodGet, "/v1/contracts/2024%2F17", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var c types.Contract
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "2024/17", c.CaseNumber)
	assert.Equal(t, "saul", c.AttorneyName)

	rec = do(t, r, http.MethodPost, "/v1/appointments", `{"client_name":"smith/jones","total_duration":60}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, r, http.MethodGet, "/v1/appointments/smith%2Fjones", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var a types.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "smith/jones", a.ClientName)
	assert.EqualValues(t, 3500, a.ConsultationFee)

	rec = do(t, r, http.MethodGet, "/v1/appointments/smith%2Fother", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedJSON(t *testing.T) {
	r := newRouter(t)
	for _, path := range []string{"/v1/contracts", "/v1/appointments"} {
		rec := do(t, r, http.MethodPost, path, `{"client_name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, decode(t, rec), "error")
	}

	rec := do(t, r, http.MethodPost, "/v1/appointments", `{"client_name":"x","total_duration":-5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "negative duration")
}

func TestFees(t *testing.T) {
	r := newRouter(t)
	tests := []struct {
		query string
		code  int
		fee   float64
	}{
		{"duration=0", http.StatusOK, 0},
		{"duration=1", http.StatusOK, 3500},
		{"duration=60", http.StatusOK, 3500},
		{"duration=120", http.StatusOK, 5000},
		{"duration=179", http.StatusOK, 5000},
		{"duration=180", http.StatusOK, 6500},
		{"duration=-1", http.StatusBadRequest, 0},
		{"duration=abc", http.StatusBadRequest, 0},
		{"", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, r, http.MethodGet, "/v1/fees?"+tt.query, "")
			require.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.fee, decode(t, rec)["consultation_fee"])
			}
		})
	}
}

func TestCORS(t *testing.T) {
	r := newRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/contracts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

// brokenLedger fails every store call.
type brokenLedger struct{}

var errBroken = errors.New("store unavailable")

func (brokenLedger) CreateContract(context.Context, types.Contract) error { return errBroken }
func (brokenLedger) GetContract(context.Context, string) (*types.Contract, bool, error) {
	return nil, false, errBroken
}
func (brokenLedger) CreateAppointment(context.Context, ledger.AppointmentRequest) (uint64, error) {
	return 0, errBroken
}
func (brokenLedger) GetAppointment(context.Context, string) (*types.Appointment, bool, error) {
	return nil, false, errBroken
}
func (brokenLedger) QuoteFee(d uint64) uint64 { return ledger.ConsultationFee(d) }

func TestStoreFailure(t *testing.T) {
	r := New(brokenLedger{}, nil).Router(Config{})
	cases := []struct{ method, path, body string }{
		{http.MethodPost, "/v1/contracts", `{"case_number":"c"}`},
		{http.MethodGet, "/v1/contracts/c", ""},
		{http.MethodPost, "/v1/appointments", `{"client_name":"m"}`},
		{http.MethodGet, "/v1/appointments/m", ""},
	}
	for _, tc := range cases {
		rec := do(t, r, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, newRouter(t), nil) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
