package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies session tokens with an ed25519 key pair.
// The subject claim carries the user id.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewIssuer builds an Issuer from an existing key pair. A zero ttl issues
// tokens without an exp claim.
func NewIssuer(priv ed25519.PrivateKey, pub ed25519.PublicKey, ttl time.Duration) (*Issuer, error) {
	if len(priv) != ed25519.PrivateKeySize || len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("bad ed25519 key sizes: private=%d public=%d", len(priv), len(pub))
	}
	return &Issuer{privateKey: priv, publicKey: pub, ttl: ttl, now: time.Now}, nil
}

// GenerateIssuer creates a fresh key pair. Tokens do not survive a restart.
func GenerateIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return NewIssuer(priv, pub, ttl)
}

// IssuerFromFiles reads raw ed25519 private/public keys from disk.
func IssuerFromFiles(privatePath, publicPath string, ttl time.Duration) (*Issuer, error) {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	return NewIssuer(ed25519.PrivateKey(priv), ed25519.PublicKey(pub), ttl)
}

// TTL is the token lifetime, zero meaning no expiry.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// CreateJWT returns a signed token for userID.
func (i *Issuer) CreateJWT(userID uuid.UUID) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// AuthenticateJWT verifies tokenString and returns the user id it was issued for.
func (i *Issuer) AuthenticateJWT(tokenString string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject: %v", ErrInvalidToken, err)
	}
	return userID, nil
}
