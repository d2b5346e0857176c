package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/dl-alexandre/gdsync/internal/utils"
)

type countingTransport struct {
	base  http.RoundTripper
	count atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.count.Add(1)
	return c.base.RoundTrip(req)
}

func writeKey(t *testing.T, key map[string]string) string {
	t.Helper()
	data, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

func testPrivateKey(t *testing.T) string {
	t.Helper()
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(rsaKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func TestLoadServiceAccountKey_Errors(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(garbage, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		code string
	}{
		{"empty path", "", utils.ErrCodeAuthRequired},
		{"missing file", filepath.Join(t.TempDir(), "missing.json"), utils.ErrCodeAuthRequired},
		{"invalid json", garbage, utils.ErrCodeInvalidArgument},
		{"wrong type", writeKey(t, map[string]string{"type": "authorized_user"}), utils.ErrCodeInvalidArgument},
		{"missing email", writeKey(t, map[string]string{"type": "service_account", "private_key": "k"}), utils.ErrCodeInvalidArgument},
		{"missing private key", writeKey(t, map[string]string{"type": "service_account", "client_email": "a@b"}), utils.ErrCodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadServiceAccountKey(tt.path)
			if !utils.HasCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestNewHTTPClient_AuthorizesThroughBaseTransport(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"sa-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	var gotAuth string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer apiSrv.Close()

	path := writeKey(t, map[string]string{
		"type":           "service_account",
		"client_email":   "mirror@project.iam.gserviceaccount.com",
		"private_key_id": "kid",
		"private_key":    testPrivateKey(t),
		"token_uri":      tokenSrv.URL,
	})

	transport := &countingTransport{base: http.DefaultTransport}
	client, email, err := NewHTTPClient(context.Background(), path, nil, transport)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if email != "mirror@project.iam.gserviceaccount.com" {
		t.Errorf("email = %s", email)
	}

	resp, err := client.Get(apiSrv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer sa-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	// token exchange plus the API call
	if n := transport.count.Load(); n != 2 {
		t.Errorf("base transport saw %d requests, want 2", n)
	}
}

func TestNewDriveService(t *testing.T) {
	path := writeKey(t, map[string]string{
		"type":         "service_account",
		"client_email": "mirror@project.iam.gserviceaccount.com",
		"private_key":  testPrivateKey(t),
		"token_uri":    "http://127.0.0.1:0/token",
	})

	svc, email, err := NewDriveService(context.Background(), path, []string{utils.ScopeFull}, nil)
	if err != nil {
		t.Fatalf("NewDriveService: %v", err)
	}
	if svc == nil || svc.Files == nil {
		t.Fatal("expected a usable drive service")
	}
	if email == "" {
		t.Error("expected service account email")
	}
}
