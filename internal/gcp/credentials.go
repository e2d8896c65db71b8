// Package gcp builds client options for Google Cloud REST services.
package gcp

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"

	"github.com/teslashibe/go-jarvis/internal/httpc"
)

// ScopeCloudPlatform covers Speech-to-Text and Text-to-Speech.
const ScopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"

// Credentials selects how a Google client authenticates.
// Precedence: HTTPClient, APIKey, CredentialsJSON, CredentialsFile, then
// application default credentials.
type Credentials struct {
	CredentialsFile string
	CredentialsJSON []byte
	APIKey          string

	// Endpoint overrides the service base URL (emulators, tests).
	Endpoint string

	// HTTPClient is used as-is and skips authentication.
	HTTPClient *http.Client
}

// ClientOptions resolves c into options for a generated google.golang.org/api service.
func ClientOptions(ctx context.Context, c Credentials, scopes ...string) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}

	if c.HTTPClient != nil {
		return append(opts, option.WithHTTPClient(c.HTTPClient)), nil
	}

	if c.APIKey != "" {
		client := &http.Client{
			Timeout:   httpc.DefaultTimeout,
			Transport: &transport.APIKey{Key: c.APIKey, Transport: httpc.NewTransport()},
		}
		return append(opts, option.WithHTTPClient(client)), nil
	}

	creds, err := findCredentials(ctx, c, scopes)
	if err != nil {
		return nil, err
	}

	// Route token refreshes and API calls through the instrumented client.
	base := context.WithValue(context.Background(), oauth2.HTTPClient, httpc.Client)
	client := oauth2.NewClient(base, creds.TokenSource)
	client.Timeout = httpc.DefaultTimeout

	return append(opts, option.WithHTTPClient(client)), nil
}

func findCredentials(ctx context.Context, c Credentials, scopes []string) (*google.Credentials, error) {
	data := c.CredentialsJSON
	if len(data) == 0 && c.CredentialsFile != "" {
		var err error
		data, err = os.ReadFile(c.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read google credentials: %w", err)
		}
	}

	if len(data) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		return creds, nil
	}

	creds, err := google.FindDefaultCredentials(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("find default google credentials: %w", err)
	}
	return creds, nil
}
