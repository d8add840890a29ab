package mpesa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nyumbani-service/internal/domain/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	calls []*payment.StkCallback
	err   error
}

func (f *fakeProcessor) Process(_ context.Context, cb *payment.StkCallback) error {
	f.calls = append(f.calls, cb)
	return f.err
}

type fakePusher struct {
	txn *payment.Transaction
	err error
}

func (f *fakePusher) InitiateStkPush(_ context.Context, _ *payment.StkPushInput) (*payment.Transaction, error) {
	return f.txn, f.err
}

func newTestRouter(processor *fakeProcessor, pusher *fakePusher, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewMpesaHandler(processor, pusher, secret, zap.NewNop())
	r := gin.New()
	r.POST("/callback/:secret", h.HandleCallback)
	r.POST("/callback", h.HandleCallback)
	r.POST("/stkpush", h.InitiateStkPush)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 5000.00},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					{"Name": "TransactionDate", "Value": 20191219102115},
					{"Name": "PhoneNumber", "Value": 254708374149}
				]
			}
		}
	}
}`

func TestHandleCallback_ValidBody_ProcessesAndAcks(t *testing.T) {
	processor := &fakeProcessor{}
	r := newTestRouter(processor, &fakePusher{}, "")

	w := postJSON(r, "/callback", validCallback)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	require.Len(t, processor.calls, 1)
	assert.Equal(t, "ws_CO_191220191020363925", processor.calls[0].CheckoutRequestID)
	assert.Equal(t, "NLJ7RT61SV", processor.calls[0].ReceiptNumber())
}

func TestHandleCallback_MalformedBody_AcksWithoutProcessing(t *testing.T) {
	processor := &fakeProcessor{}
	r := newTestRouter(processor, &fakePusher{}, "")

	w := postJSON(r, "/callback", `{"not": "a callback"`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Empty(t, processor.calls)
}

func TestHandleCallback_EmptyEnvelope_AcksWithoutProcessing(t *testing.T) {
	processor := &fakeProcessor{}
	r := newTestRouter(processor, &fakePusher{}, "")

	w := postJSON(r, "/callback", `{"Body":{"stkCallback":{}}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, processor.calls)
}

func TestHandleCallback_ProcessingError_StillAcks(t *testing.T) {
	processor := &fakeProcessor{err: errors.New("db unreachable")}
	r := newTestRouter(processor, &fakePusher{}, "")

	w := postJSON(r, "/callback", validCallback)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHandleCallback_BadSecret_AcksWithoutProcessing(t *testing.T) {
	processor := &fakeProcessor{}
	r := newTestRouter(processor, &fakePusher{}, "s3cret")

	w := postJSON(r, "/callback/guessed", validCallback)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, processor.calls)
}

func TestHandleCallback_GoodSecret_Processes(t *testing.T) {
	processor := &fakeProcessor{}
	r := newTestRouter(processor, &fakePusher{}, "s3cret")

	w := postJSON(r, "/callback/s3cret", validCallback)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, processor.calls, 1)
}

func TestInitiateStkPush_InvalidBody_BadRequest(t *testing.T) {
	r := newTestRouter(&fakeProcessor{}, &fakePusher{}, "")

	w := postJSON(r, "/stkpush", `{"amount": "not a number"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateStkPush_GatewayRejection_BadGateway(t *testing.T) {
	pusher := &fakePusher{err: errors.New("gateway rejected stk push")}
	r := newTestRouter(&fakeProcessor{}, pusher, "")

	w := postJSON(r, "/stkpush", `{"phone":"254712345678","amount":"5000"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
