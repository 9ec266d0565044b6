package fcm_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olahtaxi/taxirelay/internal/fcm"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
	})
	return testKey
}

func testAccount(t *testing.T, tokenURI string) *fcm.ServiceAccount {
	t.Helper()
	der := x509.MarshalPKCS1PrivateKey(signingKey(t))
	return &fcm.ServiceAccount{
		ClientEmail: "relay@olah-taxi.iam.gserviceaccount.com",
		PrivateKey:  string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})),
		ProjectID:   "olah-taxi",
		TokenURI:    tokenURI,
	}
}
