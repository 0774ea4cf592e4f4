package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/api/models"
	"quant-backtest/internal/data"
	"quant-backtest/internal/model"
)

// PriceLoader resolves a request data source into a price panel.
type PriceLoader struct {
	Yahoo  *data.YahooClient
	Remote *data.RemoteClient
}

// NewPriceLoader creates a loader backed by the given clients.
func NewPriceLoader(yahoo *data.YahooClient, remote *data.RemoteClient) *PriceLoader {
	return &PriceLoader{Yahoo: yahoo, Remote: remote}
}

// Load fetches the panel described by ds.
func (l *PriceLoader) Load(ctx context.Context, ds models.DataSourceConfig) (*model.Panel, error) {
	switch ds.Type {
	case "inline":
		if ds.Prices == nil {
			return nil, errors.New("inline data source needs prices")
		}
		dates := make([]time.Time, len(ds.Prices.Dates))
		for i, s := range ds.Prices.Dates {
			d, err := data.ParseDate(s)
			if err != nil {
				return nil, err
			}
			dates[i] = d
		}
		return model.NewPanel(dates, ds.Prices.Columns, ds.Prices.Rows)
	case "yahoo":
		if len(ds.Tickers) == 0 {
			return nil, errors.New("yahoo data source needs tickers")
		}
		start, end, err := window(ds)
		if err != nil {
			return nil, err
		}
		if end.IsZero() {
			end = time.Now().UTC()
		}
		if start.IsZero() {
			start = end.AddDate(-1, 0, 0)
		}
		return l.Yahoo.FetchPrices(ctx, ds.Tickers, start, end)
	case "remote":
		if ds.URL == "" {
			return nil, errors.New("remote data source needs a url")
		}
		table, err := l.Remote.Fetch(ctx, ds.URL, ds.Token)
		if err != nil {
			return nil, err
		}
		return table.Panel()
	default:
		return nil, fmt.Errorf("unsupported data source type: %s", ds.Type)
	}
}

func window(ds models.DataSourceConfig) (start, end time.Time, err error) {
	if ds.StartDate != "" {
		if start, err = data.ParseDate(ds.StartDate); err != nil {
			return start, end, fmt.Errorf("start_date: %w", err)
		}
	}
	if ds.EndDate != "" {
		if end, err = data.ParseDate(ds.EndDate); err != nil {
			return start, end, fmt.Errorf("end_date: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return start, end, errors.New("start_date must be before end_date")
	}
	return start, end, nil
}

// loadPrices loads the panel or writes the error response. The bool reports
// whether the caller may continue.
func (l *PriceLoader) loadPrices(c *gin.Context, ds models.DataSourceConfig) (*model.Panel, bool) {
	panel, err := l.Load(c.Request.Context(), ds)
	if err != nil {
		writeFetchError(c, err)
		return nil, false
	}
	return panel, true
}

// writeFetchError maps upstream API errors onto HTTP status codes.
func writeFetchError(c *gin.Context, err error) {
	var apiErr *data.APIError
	if errors.As(err, &apiErr) {
		statusCode := http.StatusBadRequest
		if apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusUnauthorized {
			statusCode = http.StatusUnauthorized
		} else if apiErr.StatusCode == http.StatusTooManyRequests {
			statusCode = http.StatusTooManyRequests
		}
		c.JSON(statusCode, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: map[string]interface{}{
					"status_code": apiErr.StatusCode,
					"retry_after": apiErr.RetryAfter,
				},
			},
		})
		return
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "DATA_FETCH_ERROR",
			Message: err.Error(),
		},
	})
}

func badRequest(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}
