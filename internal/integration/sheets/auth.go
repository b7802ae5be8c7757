package sheets

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
)

// ReadOnlyScope grants read access to spreadsheets
const ReadOnlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

// NewServiceAccountClient returns an HTTP client that signs requests with the
// service-account key in credentialsJSON
func NewServiceAccountClient(ctx context.Context, credentialsJSON []byte) (*http.Client, error) {
	conf, err := google.JWTConfigFromJSON(credentialsJSON, ReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	return conf.Client(ctx), nil
}

// LoadServiceAccountClient reads the credentials file at path
func LoadServiceAccountClient(ctx context.Context, path string) (*http.Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return NewServiceAccountClient(ctx, data)
}
