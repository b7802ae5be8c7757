package sheets

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carelog/daycare-bot/internal/config"
	"github.com/rs/zerolog/log"
)

// NewReaderFromConfig picks the values API when a spreadsheet id is set and
// the published HTML reader otherwise, wrapped in a cache either way
func NewReaderFromConfig(ctx context.Context, cfg config.SheetsConfig) (*CachedReader, error) {
	var base Reader
	switch {
	case cfg.SpreadsheetID != "":
		var httpClient *http.Client
		if cfg.CredentialsFile != "" {
			client, err := LoadServiceAccountClient(ctx, cfg.CredentialsFile)
			if err != nil {
				return nil, err
			}
			httpClient = client
			log.Info().Msg("Using service account for Google Sheets")
		} else if cfg.APIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY or GOOGLE_CREDENTIALS_FILE is required with GOOGLE_SHEETS_ID")
		}
		base = NewValuesClient(cfg.APIBaseURL, cfg.SpreadsheetID, cfg.APIKey, httpClient)
	case cfg.PublishedID != "":
		log.Info().Int("tabs", len(cfg.PublishedGIDs)).Msg("Using published Google Sheet")
		base = NewPublishedReader("", cfg.PublishedID, cfg.PublishedGIDs)
	default:
		return nil, fmt.Errorf("no Google Sheets source configured")
	}

	return NewCachedReader(base, cfg.CacheSize, cfg.CacheTTL), nil
}
