// Package credential holds the service-account credential bundle carried
// inside a bearer token and the Fernet codec that seals and opens it.
// It is a leaf package: drive/ and server/ both import it, it imports
// neither.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Fixed endpoints of a Google service-account key file. Only the token URI
// is ever overridden (tests point it at a local fake).
const (
	DefaultAuthURI      = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURI     = "https://oauth2.googleapis.com/token"
	authProviderCertURL = "https://www.googleapis.com/oauth2/v1/certs"
	universeDomain      = "googleapis.com"
	serviceAccountType  = "service_account"
)

// ErrIncompleteBundle is returned when a bundle lacks the fields needed to
// sign a JWT assertion.
var ErrIncompleteBundle = errors.New("credential: incomplete bundle")

// Bundle is the decrypted content of a bearer token. JSON keys are camelCase
// because that is the shape operators have been minting tokens with.
type Bundle struct {
	ProjectID         string `json:"projectId"`
	PrivateKeyID      string `json:"privateKeyId"`
	PrivateKey        string `json:"privateKey"`
	ClientEmail       string `json:"clientEmail"`
	ClientID          string `json:"clientId"`
	ClientX509CertURL string `json:"clientX509CertUrl"`
}

// serviceAccountFile mirrors the key file the Google console hands out.
// Unexported: callers go through ServiceAccountJSON and BundleFromServiceAccount.
type serviceAccountFile struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
	UniverseDomain          string `json:"universe_domain"`
}

// Validate reports whether the bundle has the fields a JWT assertion needs.
// Whether the key actually signs is left to the provider's handshake.
func (b Bundle) Validate() error {
	var missing []string

	if b.PrivateKey == "" {
		missing = append(missing, "privateKey")
	}

	if b.ClientEmail == "" {
		missing = append(missing, "clientEmail")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncompleteBundle, missing)
	}

	return nil
}

// ServiceAccountJSON renders the bundle as a service-account key file.
// An empty tokenURI selects DefaultTokenURI.
func (b Bundle) ServiceAccountJSON(tokenURI string) ([]byte, error) {
	if tokenURI == "" {
		tokenURI = DefaultTokenURI
	}

	data, err := json.Marshal(serviceAccountFile{
		Type:                    serviceAccountType,
		ProjectID:               b.ProjectID,
		PrivateKeyID:            b.PrivateKeyID,
		PrivateKey:              b.PrivateKey,
		ClientEmail:             b.ClientEmail,
		ClientID:                b.ClientID,
		AuthURI:                 DefaultAuthURI,
		TokenURI:                tokenURI,
		AuthProviderX509CertURL: authProviderCertURL,
		ClientX509CertURL:       b.ClientX509CertURL,
		UniverseDomain:          universeDomain,
	})
	if err != nil {
		return nil, fmt.Errorf("credential: encoding service account: %w", err)
	}

	return data, nil
}

// BundleFromServiceAccount extracts a Bundle from a key file as downloaded
// from the Google console. Used when provisioning tokens.
func BundleFromServiceAccount(data []byte) (Bundle, error) {
	var sa serviceAccountFile
	if err := json.Unmarshal(data, &sa); err != nil {
		return Bundle{}, fmt.Errorf("credential: decoding service account: %w", err)
	}

	if sa.Type != serviceAccountType {
		return Bundle{}, fmt.Errorf("credential: key file type is %q, want %q", sa.Type, serviceAccountType)
	}

	b := Bundle{
		ProjectID:         sa.ProjectID,
		PrivateKeyID:      sa.PrivateKeyID,
		PrivateKey:        sa.PrivateKey,
		ClientEmail:       sa.ClientEmail,
		ClientID:          sa.ClientID,
		ClientX509CertURL: sa.ClientX509CertURL,
	}

	if err := b.Validate(); err != nil {
		return Bundle{}, err
	}

	return b, nil
}
