// Package sheets reads elder and health rows from Google Sheets
package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultAPIBaseURL is the Sheets v4 host
const DefaultAPIBaseURL = "https://sheets.googleapis.com"

// Reader returns the rows of an A1 range, header row included.
// Callers must treat the returned rows as read-only.
type Reader interface {
	Read(ctx context.Context, rng string) ([][]string, error)
}

// ValuesClient reads ranges through the Sheets v4 values endpoint
type ValuesClient struct {
	httpClient    *resty.Client
	spreadsheetID string
	apiKey        string
}

// NewValuesClient creates a values reader. httpClient may carry OAuth2
// credentials; when nil, requests are authorized with apiKey only.
func NewValuesClient(baseURL, spreadsheetID, apiKey string, httpClient *http.Client) *ValuesClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}
	client.
		SetBaseURL(baseURL).
		SetTimeout(20*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Accept", "application/json")

	return &ValuesClient{
		httpClient:    client,
		spreadsheetID: spreadsheetID,
		apiKey:        apiKey,
	}
}

type valueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension"`
	Values         [][]any `json:"values"`
}

// Read fetches one range
func (c *ValuesClient) Read(ctx context.Context, rng string) ([][]string, error) {
	if rng == "" {
		return nil, entities.Missing("range")
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"id":    c.spreadsheetID,
			"range": rng,
		}).
		SetQueryParam("valueRenderOption", "FORMATTED_VALUE")
	if c.apiKey != "" {
		req.SetQueryParam("key", c.apiKey)
	}

	var result valueRange
	resp, err := req.SetResult(&result).Get("/v4/spreadsheets/{id}/values/{range}")
	if err != nil {
		log.Error().Err(err).Str("range", rng).Msg("Sheets API call failed")
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}
	if resp.IsError() {
		log.Error().Int("status_code", resp.StatusCode()).Str("range", rng).Msg("Sheets API returned error")
		return nil, &entities.UpstreamError{Service: "sheets", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	rows := make([][]string, 0, len(result.Values))
	for _, raw := range result.Values {
		row := make([]string, len(raw))
		for i, v := range raw {
			if v != nil {
				row[i] = strings.TrimSpace(fmt.Sprint(v))
			}
		}
		rows = append(rows, row)
	}

	log.Debug().Str("range", rng).Int("rows", len(rows)).Msg("Read sheet range")
	return rows, nil
}
