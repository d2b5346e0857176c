package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/dl-alexandre/gdsync/internal/utils"
	"github.com/dl-alexandre/gdsync/pkg/version"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ServiceAccountKey represents the JSON structure of a service account key file
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// LoadServiceAccountKey reads and validates a service account key file.
// The raw bytes are returned alongside the parsed key for credential exchange.
func LoadServiceAccountKey(keyFilePath string) (*ServiceAccountKey, []byte, error) {
	if keyFilePath == "" {
		return nil, nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthRequired,
			"service account key file required").Build())
	}
	keyData, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthRequired,
			fmt.Sprintf("service account key file not readable: %s", keyFilePath)).
			WithContext("path", keyFilePath).Build()).WithCause(err)
	}

	var key ServiceAccountKey
	if err := json.Unmarshal(keyData, &key); err != nil {
		return nil, nil, invalidKey(keyFilePath, "failed to parse service account key").WithCause(err)
	}
	if key.Type != "service_account" {
		return nil, nil, invalidKey(keyFilePath, fmt.Sprintf("invalid service account key type: %q", key.Type))
	}
	if key.ClientEmail == "" {
		return nil, nil, invalidKey(keyFilePath, "missing client_email in service account key")
	}
	if key.PrivateKey == "" {
		return nil, nil, invalidKey(keyFilePath, "missing private_key in service account key")
	}
	return &key, keyData, nil
}

func invalidKey(path, msg string) *utils.AppError {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, msg).
		WithContext("path", path).Build())
}

// NewHTTPClient returns an HTTP client authorized as the service account.
// base, when non-nil, carries both token exchange and API traffic.
func NewHTTPClient(ctx context.Context, keyFilePath string, scopes []string, base http.RoundTripper) (*http.Client, string, error) {
	if len(scopes) == 0 {
		scopes = utils.ScopesSync
	}
	key, keyData, err := LoadServiceAccountKey(keyFilePath)
	if err != nil {
		return nil, "", err
	}

	// Token refresh outlives the caller's cancellation; the daemon refreshes for hours.
	ctx = context.WithoutCancel(ctx)
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})
	}

	creds, err := google.CredentialsFromJSON(ctx, keyData, scopes...)
	if err != nil {
		return nil, "", invalidKey(keyFilePath, "failed to parse service account key").WithCause(err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), key.ClientEmail, nil
}

// NewDriveService creates a Drive API service authenticated with a service account key
func NewDriveService(ctx context.Context, keyFilePath string, scopes []string, base http.RoundTripper) (*drive.Service, string, error) {
	client, email, err := NewHTTPClient(ctx, keyFilePath, scopes, base)
	if err != nil {
		return nil, "", err
	}
	svc, err := drive.NewService(ctx,
		option.WithHTTPClient(client),
		option.WithUserAgent(version.Get().UserAgent()),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create drive service: %w", err)
	}
	return svc, email, nil
}
