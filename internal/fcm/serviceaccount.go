package fcm

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenURI is Google's OAuth 2.0 token endpoint.
const DefaultTokenURI = "https://oauth2.googleapis.com/token"

// ServiceAccount holds the fields of a Google service-account key used for FCM.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	ProjectID   string `json:"project_id"`
	TokenURI    string `json:"token_uri,omitempty"`
}

// LoadServiceAccountFile reads a service-account JSON key file.
func LoadServiceAccountFile(path string) (*ServiceAccount, []byte, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, nil, fmt.Errorf("read service account: %w", err)
	}
	sa, err := ParseServiceAccount(raw)
	if err != nil {
		return nil, nil, err
	}
	return sa, raw, nil
}

// ParseServiceAccount decodes and validates a service-account JSON document.
func ParseServiceAccount(raw []byte) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("decode service account: %w", err)
	}
	if err := sa.Validate(); err != nil {
		return nil, err
	}
	return &sa, nil
}

// Validate checks the required fields, unescapes the private key and defaults TokenURI.
func (sa *ServiceAccount) Validate() error {
	var missing []string
	if sa.ClientEmail == "" {
		missing = append(missing, "client_email")
	}
	if sa.PrivateKey == "" {
		missing = append(missing, "private_key")
	}
	if sa.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("service account missing %s", strings.Join(missing, ", "))
	}
	sa.PrivateKey = normalizePEM(sa.PrivateKey)
	if sa.TokenURI == "" {
		sa.TokenURI = DefaultTokenURI
	}
	return nil
}

// JSON re-encodes the account in the shape the Firebase SDK expects.
func (sa *ServiceAccount) JSON() ([]byte, error) {
	normalized := *sa
	normalized.PrivateKey = normalizePEM(sa.PrivateKey)
	return json.Marshal(struct {
		Type string `json:"type"`
		*ServiceAccount
	}{Type: "service_account", ServiceAccount: &normalized})
}

// RSAKey parses the PEM private key.
func (sa *ServiceAccount) RSAKey() (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(normalizePEM(sa.PrivateKey)))
	if err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}
	return key, nil
}

// normalizePEM unescapes literal "\n" sequences, which keys pasted into
// environment variables often carry. Keys with real newlines pass through.
func normalizePEM(key string) string {
	if strings.Contains(key, "\n") {
		return key
	}
	return strings.ReplaceAll(key, `\n`, "\n")
}
