package exchange

import (
	"testing"

	"github.com/banky/hyperliquid-exec/rest"
	"github.com/maxatome/go-testdeep/td"
)

const (
	okRestingJSON = `
{
   "status":"ok",
   "response":{
      "type":"order",
      "data":{
         "statuses":[
            {"resting":{"oid":77738308}},
            {"filled":{"totalSz":"0.02","avgPx":"1891.4","oid":77747314}},
            {"error":"Order must have minimum value of $10."}
         ]
      }
   }
}`

	okCancelJSON = `
{
   "status":"ok",
   "response":{
      "type":"cancel",
      "data":{
         "statuses":[
            "success",
            {"error":"Order was never placed, already canceled, or filled."}
         ]
      }
   }
}`

	okTwapJSON = `
{
   "status":"ok",
   "response":{
      "type":"twapOrder",
      "data":{"status":{"running":{"twapId":77738308}}}
   }
}`

	okDefaultJSON = `{"status":"ok","response":{"type":"default"}}`

	errTopLevelJSON = `
{
   "status": "err",
   "response": "User or API Wallet 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 does not exist."
}`
)

func TestDecodeOrderResponse(t *testing.T) {
	statuses, err := decodeResponse[OrderResponse]([]byte(okRestingJSON))
	td.CmpNoError(t, err)
	td.Cmp(t, statuses, td.Len(3))

	td.Cmp(t, statuses[0].Resting, td.Struct(&OrderStatusResting{Oid: 77738308}))
	td.Cmp(t, statuses[1].Filled, &OrderStatusFilled{TotalSz: "0.02", AvgPx: "1891.4", Oid: 77747314})
	td.Cmp(t, statuses[2].Error, td.Ptr("Order must have minimum value of $10."))
}

func TestDecodeCancelResponse(t *testing.T) {
	statuses, err := decodeResponse[CancelResponse]([]byte(okCancelJSON))
	td.CmpNoError(t, err)
	td.Cmp(t, statuses, CancelResponse{
		{Success: true},
		{Error: "Order was never placed, already canceled, or filled."},
	})
}

func TestDecodeTwapResponse(t *testing.T) {
	resp, err := decodeResponse[TwapOrderResponse]([]byte(okTwapJSON))
	td.CmpNoError(t, err)
	td.Cmp(t, resp.Running, &TwapRunning{TwapId: 77738308})
	td.CmpNil(t, resp.Error)
}

func TestDecodeDefaultResponse(t *testing.T) {
	resp, err := decodeResponse[DefaultResponse]([]byte(okDefaultJSON))
	td.CmpNoError(t, err)
	td.Cmp(t, resp.Type, "default")
}

func TestDecodeOkWithoutResponse(t *testing.T) {
	for _, body := range []string{`{"status":"ok"}`, `{"status":"ok","response":null}`} {
		resp, err := decodeResponse[DefaultResponse]([]byte(body))
		td.CmpNoError(t, err, body)
		td.Cmp(t, resp, DefaultResponse{}, body)
	}

	statuses, err := decodeResponse[OrderResponse]([]byte(`{"status":"ok"}`))
	td.CmpNoError(t, err)
	td.CmpEmpty(t, statuses)
}

func TestDecodeErrorResponse(t *testing.T) {
	_, err := decodeResponse[OrderResponse]([]byte(errTopLevelJSON))
	td.Cmp(t, err, td.Isa(&rest.APIError{}))

	apiErr := err.(*rest.APIError)
	td.Cmp(t, apiErr.Status, "err")
	td.Cmp(t, apiErr.StatusCode, 200)
	td.Cmp(t, apiErr.Message, td.HasPrefix("User or API Wallet"))
	td.Cmp(t, apiErr.Body, errTopLevelJSON)
}

func TestDecodeMalformedResponse(t *testing.T) {
	for _, body := range []string{`not json`, `{"status":"ok","response":{"type":"order","data":{"statuses":"x"}}}`} {
		_, err := decodeResponse[OrderResponse]([]byte(body))
		td.Cmp(t, err, td.Smuggle(func(e *rest.APIError) string { return e.Status }, "malformed"), body)
	}
}
