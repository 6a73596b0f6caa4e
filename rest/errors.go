package rest

import (
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// APIError is a response the exchange did not accept: a non-2xx status,
// a body that does not match the expected shape, or a status other than
// "ok". Body is the raw response text.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (http %d, status %q)", e.StatusCode, e.Status)
	}
	return fmt.Sprintf(
		"api error (http %d, status %q): %s",
		e.StatusCode,
		e.Status,
		e.Message,
	)
}

type errorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func handleException(resp *resty.Response) error {
	statusCode := resp.StatusCode()

	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	body := string(resp.Body())
	apiErr := &APIError{
		StatusCode: statusCode,
		Status:     "http_error",
		Message:    body,
		Body:       body,
	}

	var errResp errorResponse
	if err := json.Unmarshal(resp.Body(), &errResp); err == nil && errResp.Msg != "" {
		apiErr.Message = errResp.Msg
		if errResp.Code != "" {
			apiErr.Status = errResp.Code
		}
	}

	return apiErr
}
