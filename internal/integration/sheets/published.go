package sheets

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultPublishedBaseURL hosts "publish to web" documents
const DefaultPublishedBaseURL = "https://docs.google.com"

// PublishedReader scrapes the HTML table of a spreadsheet published to the web.
// It needs no credentials but only sees whole tabs, so column bounds in a
// range are ignored.
type PublishedReader struct {
	httpClient *resty.Client
	documentID string
	gids       map[string]string
}

// NewPublishedReader creates a reader for a published document.
// gids maps tab names to their gid query value.
func NewPublishedReader(baseURL, documentID string, gids map[string]string) *PublishedReader {
	if baseURL == "" {
		baseURL = DefaultPublishedBaseURL
	}
	return &PublishedReader{
		httpClient: resty.New().SetBaseURL(baseURL).SetTimeout(20 * time.Second),
		documentID: documentID,
		gids:       gids,
	}
}

// SheetName returns the tab part of an A1 range, e.g. "Elders" for "Elders!A:B"
func SheetName(rng string) string {
	name, _, _ := strings.Cut(rng, "!")
	return strings.Trim(name, "'")
}

// Read fetches the tab named in rng and returns its table rows
func (p *PublishedReader) Read(ctx context.Context, rng string) ([][]string, error) {
	sheet := SheetName(rng)
	if sheet == "" {
		return nil, entities.Missing("range")
	}
	gid, ok := p.gids[sheet]
	if !ok {
		return nil, &entities.ValidationError{Field: "range", Message: fmt.Sprintf("unknown sheet %q", sheet)}
	}

	log.Debug().Str("sheet", sheet).Str("gid", gid).Msg("Fetching published sheet")
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetPathParam("doc", p.documentID).
		SetQueryParams(map[string]string{"gid": gid, "single": "true", "headers": "false"}).
		Get("/spreadsheets/d/e/{doc}/pubhtml/sheet")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch published sheet %s: %w", sheet, err)
	}
	if resp.IsError() {
		log.Error().Int("status_code", resp.StatusCode()).Str("sheet", sheet).Msg("Unexpected status for published sheet")
		return nil, &entities.UpstreamError{Service: "sheets", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse published sheet %s: %w", sheet, err)
	}

	rows := ParseTable(doc)
	log.Debug().Str("sheet", sheet).Int("rows", len(rows)).Msg("Parsed published sheet")
	return rows, nil
}

// ParseTable extracts cell text from the first grid table in the document.
// Row-number header cells (th) and fully blank rows are dropped.
func ParseTable(doc *goquery.Document) [][]string {
	table := doc.Find("table.waffle").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}

	var rows [][]string
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		blank := true
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			v := strings.TrimSpace(td.Text())
			if v != "" {
				blank = false
			}
			row = append(row, v)
		})
		if blank {
			return
		}
		rows = append(rows, trimTrailingBlanks(row))
	})
	return rows
}

func trimTrailingBlanks(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}
