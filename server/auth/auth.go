package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/safenest/server/auth/key"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const TOKEN_TTL = 30 * 24 * time.Hour

type SafeNestTokenClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.StandardClaims
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NewClaims builds the claims for a guardian token that expires after TOKEN_TTL
func NewClaims(guardianID uint, name, email string, isAdmin bool) SafeNestTokenClaims {
	now := time.Now()
	return SafeNestTokenClaims{
		Name:    name,
		Email:   email,
		IsAdmin: isAdmin,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(guardianID),
			Issuer:    "safenest",
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(TOKEN_TTL).Unix(),
		},
	}
}

func EncodeJWT(claims SafeNestTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*SafeNestTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SafeNestTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*SafeNestTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to SafeNestTokenClaims")
	}

	return tokenClaims, nil
}
