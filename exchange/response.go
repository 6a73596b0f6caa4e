package exchange

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banky/hyperliquid-exec/rest"
	"github.com/banky/hyperliquid-exec/types"
)

// Response is the /exchange envelope. Data is set only when Status is
// "ok"; ErrorMessage carries the server text otherwise.
type Response[T any] struct {
	Status       string
	Data         *T
	ErrorMessage string
}

// wire-level shape:
//
//	{
//	  "status": "ok" | "err",
//	  "response": <object or string>
//	}
type rawResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

func (r *Response[T]) UnmarshalJSON(data []byte) error {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal raw response: %w", err)
	}

	r.Status = raw.Status
	r.Data = nil
	r.ErrorMessage = ""

	if raw.Status != "ok" {
		var msg string
		if err := json.Unmarshal(raw.Response, &msg); err != nil {
			msg = string(raw.Response)
		}
		r.ErrorMessage = msg
		return nil
	}

	// An accepted action may come back without a response body.
	var payload T
	if len(raw.Response) == 0 || string(raw.Response) == "null" {
		r.Data = &payload
		return nil
	}
	if err := json.Unmarshal(raw.Response, &payload); err != nil {
		return fmt.Errorf("unmarshal ok response body: %w", err)
	}
	r.Data = &payload
	return nil
}

func (r Response[T]) IsOK() bool {
	return r.Status == "ok" && r.Data != nil
}

// decodeResponse turns a 2xx body into T, or an APIError when the
// exchange rejected the action or the body has an unexpected shape.
func decodeResponse[T any](body []byte) (T, error) {
	var zero T

	var resp Response[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		return zero, &rest.APIError{
			StatusCode: http.StatusOK,
			Status:     "malformed",
			Message:    err.Error(),
			Body:       string(body),
		}
	}

	if !resp.IsOK() {
		status := resp.Status
		if status == "" {
			status = "missing"
		}
		return zero, &rest.APIError{
			StatusCode: http.StatusOK,
			Status:     status,
			Message:    resp.ErrorMessage,
			Body:       string(body),
		}
	}

	return *resp.Data, nil
}

// extractStatuses pulls data.statuses out of a {type, data} payload.
func extractStatuses[T any](data []byte) ([]T, error) {
	var raw struct {
		Type string `json:"type"`
		Data struct {
			Statuses []T `json:"statuses"`
		} `json:"data"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return raw.Data.Statuses, nil
}

/*//////////////////////////////////////////////////////////////
                             ORDER
//////////////////////////////////////////////////////////////*/

// OrderResponse holds one status per submitted order, in order.
type OrderResponse []OrderStatus

func (or *OrderResponse) UnmarshalJSON(data []byte) error {
	statuses, err := extractStatuses[OrderStatus](data)
	if err != nil {
		return fmt.Errorf("unmarshal order response: %w", err)
	}
	*or = OrderResponse(statuses)
	return nil
}

// OrderStatus has exactly one of its fields set.
type OrderStatus struct {
	Resting *OrderStatusResting `json:"resting,omitempty"`
	Filled  *OrderStatusFilled  `json:"filled,omitempty"`
	Error   *string             `json:"error,omitempty"`
}

type OrderStatusResting struct {
	Oid   int64        `json:"oid"`
	Cloid *types.Cloid `json:"cloid,omitempty"`
}

type OrderStatusFilled struct {
	TotalSz string       `json:"totalSz"`
	AvgPx   string       `json:"avgPx"`
	Oid     int64        `json:"oid"`
	Cloid   *types.Cloid `json:"cloid,omitempty"`
}

/*//////////////////////////////////////////////////////////////
                             CANCEL
//////////////////////////////////////////////////////////////*/

type CancelResponse []CancelStatus

func (cr *CancelResponse) UnmarshalJSON(data []byte) error {
	statuses, err := extractStatuses[CancelStatus](data)
	if err != nil {
		return fmt.Errorf("unmarshal cancel response: %w", err)
	}
	*cr = CancelResponse(statuses)
	return nil
}

// CancelStatus is either the string "success" or {"error": "..."}.
type CancelStatus struct {
	Success bool
	Error   string
}

func (s *CancelStatus) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if text != "success" {
			return fmt.Errorf("unexpected cancel status %q", text)
		}
		*s = CancelStatus{Success: true}
		return nil
	}

	var failed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &failed); err != nil {
		return fmt.Errorf("unmarshal cancel status: %w", err)
	}
	*s = CancelStatus{Error: failed.Error}
	return nil
}

/*//////////////////////////////////////////////////////////////
                              TWAP
//////////////////////////////////////////////////////////////*/

type TwapOrderResponse struct {
	Running *TwapRunning `json:"running,omitempty"`
	Error   *string      `json:"error,omitempty"`
}

type TwapRunning struct {
	TwapId int64 `json:"twapId"`
}

func (tr *TwapOrderResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data struct {
			Status struct {
				Running *TwapRunning `json:"running,omitempty"`
				Error   *string      `json:"error,omitempty"`
			} `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal twap response: %w", err)
	}
	tr.Running = raw.Data.Status.Running
	tr.Error = raw.Data.Status.Error
	return nil
}

/*//////////////////////////////////////////////////////////////
                            DEFAULT
//////////////////////////////////////////////////////////////*/

// DefaultResponse is the payload of actions that only acknowledge.
type DefaultResponse struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
