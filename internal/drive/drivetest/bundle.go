package drivetest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/tonimelisma/drivegate/internal/credential"
)

var (
	keyOnce sync.Once
	keyPEM  string
	keyErr  error
)

// PrivateKeyPEM returns a PKCS#8 RSA key shared by every test in the
// process. Generating one per test is slow.
func PrivateKeyPEM(t *testing.T) string {
	t.Helper()

	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			keyErr = err
			return
		}

		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			keyErr = err
			return
		}

		keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	})

	if keyErr != nil {
		t.Fatalf("generating test key: %v", keyErr)
	}

	return keyPEM
}

// Bundle returns a credential bundle the fake accepts.
func Bundle(t *testing.T) credential.Bundle {
	t.Helper()

	return credential.Bundle{
		ProjectID:         "drivetest-project",
		PrivateKeyID:      "drivetest-key-1",
		PrivateKey:        PrivateKeyPEM(t),
		ClientEmail:       "uploader@drivetest-project.iam.gserviceaccount.com",
		ClientID:          "100000000000000000001",
		ClientX509CertURL: "https://www.googleapis.com/robot/v1/metadata/x509/uploader",
	}
}
