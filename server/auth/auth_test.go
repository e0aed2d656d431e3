package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/Daskott/safenest/server/auth/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) *key.KeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privateKeyPem := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(string(privateKeyPem))
	require.NoError(t, err)
	return keyPair
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("Password1!")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("Password1!", hash))
	assert.False(t, CheckPasswordHash("password1!", hash))
}

func TestEncodeAndDecodeJWT(t *testing.T) {
	keyPair := newKeyPair(t)

	token, err := EncodeJWT(NewClaims(7, "Jessica", "jessica@pearson.com", true), keyPair)
	require.NoError(t, err)

	claims, err := DecodeJWT(token, keyPair)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "jessica@pearson.com", claims.Email)
	assert.True(t, claims.IsAdmin)

	_, err = DecodeJWT(token, newKeyPair(t))
	assert.Error(t, err, "tokens signed by another key are rejected")

	_, err = DecodeJWT("not-a-token", keyPair)
	assert.Error(t, err)
}

func TestJWK(t *testing.T) {
	keyPair := newKeyPair(t)

	jwk, err := keyPair.JWK()
	require.NoError(t, err)
	assert.Equal(t, key.KEY_ID, jwk.KeyID())

	jwks := key.ExportJWKAsJWKS(jwk)
	assert.Len(t, jwks.Keys, 1)

	_, err = key.NewKeyPairFromRSAPrivateKeyPem("not a pem")
	assert.Error(t, err)
}
