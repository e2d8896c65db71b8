package gcp

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClientOptionsHTTPClient(t *testing.T) {
	opts, err := ClientOptions(context.Background(), Credentials{
		Endpoint:   "http://localhost:1234/",
		HTTPClient: http.DefaultClient,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts) != 2 {
		t.Errorf("expected endpoint and http client options, got %d", len(opts))
	}
}

func TestClientOptionsAPIKey(t *testing.T) {
	opts, err := ClientOptions(context.Background(), Credentials{APIKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts) != 1 {
		t.Errorf("expected a single option, got %d", len(opts))
	}
}

func TestClientOptionsBadFile(t *testing.T) {
	_, err := ClientOptions(context.Background(), Credentials{
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read google credentials") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestClientOptionsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := ClientOptions(context.Background(), Credentials{CredentialsFile: path})
	if err == nil || !strings.Contains(err.Error(), "parse google credentials") {
		t.Errorf("expected parse error, got %v", err)
	}
}
