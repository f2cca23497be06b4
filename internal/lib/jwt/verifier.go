package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject возвращается для токена без поля sub.
var ErrMissingSubject = errors.New("token has no subject")

// Verifier описывает проверку сессионных токенов.
type Verifier interface {
	ParseToken(tokenStr string) (*SessionClaims, error)
}

// RSAVerifier проверяет токены открытым ключом провайдера.
type RSAVerifier struct {
	key    *rsa.PublicKey
	issuer string
	leeway time.Duration
}

// NewRSAVerifier создаёт RSAVerifier из PEM-ключа. Пустой issuer отключает проверку iss.
func NewRSAVerifier(publicKeyPEM string, issuer string, leeway time.Duration) (*RSAVerifier, error) {
	const op = "jwt.NewRSAVerifier"
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &RSAVerifier{key: key, issuer: issuer, leeway: leeway}, nil
}

// ParseToken проверяет подпись, срок действия и издателя токена.
func (v *RSAVerifier) ParseToken(tokenStr string) (*SessionClaims, error) {
	const op = "jwt.ParseToken"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSubject)
	}
	return claims, nil
}
