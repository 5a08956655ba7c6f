package connectors

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// MacroReading is the bounded 0-100 market sentiment index with its label.
type MacroReading struct {
	Value          float64
	Classification string
}

// MacroClient fetches the macro sentiment index (fear & greed style, 0-100).
type MacroClient struct {
	http *resty.Client
}

// NewMacroClient creates a client with bounded timeouts and retry on 5xx.
func NewMacroClient(baseURL string, timeout time.Duration) *MacroClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &MacroClient{http: httpClient}
}

// FetchIndex returns the current index reading.
func (c *MacroClient) FetchIndex(ctx context.Context) (*MacroReading, error) {
	var decoded struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", "1").
		SetResult(&decoded).
		Get("/fng/")
	if err != nil {
		return nil, fmt.Errorf("fetch macro index: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, statusToError(resp)
	}

	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("macro index response contained no data points")
	}

	value, err := strconv.ParseFloat(decoded.Data[0].Value, 64)
	if err != nil {
		return nil, fmt.Errorf("parse macro index value %q: %w", decoded.Data[0].Value, err)
	}

	return &MacroReading{
		Value:          value,
		Classification: decoded.Data[0].Classification,
	}, nil
}
