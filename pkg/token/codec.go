// Package token implements the bearer token lifecycle: a codec producing
// compact signed tokens, an issuer that mints and registers them at login,
// and a verifier that resolves presented tokens to users.
//
// The wire format is three dot-joined segments, each standard base64 with
// padding: base64(header).base64(claims).base64(signature). The signature is
// HMAC-SHA512 over the first two joined segments. Note the standard alphabet:
// tokens are not URL-safe, which is why verification restores `+` characters
// that URL transport turned into spaces.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers every structural failure: wrong segment count,
	// undecodable segments, and signature mismatch.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnsupportedAlgorithm is returned when the header names any
	// algorithm other than HS512.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// Claims is the token payload. Only issuer, subject, issued-at, and expiry
// are populated.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec encodes and decodes signed tokens with a fixed server secret.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
}

// NewCodec creates a codec signing with HMAC-SHA512 under the given secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{
		secret: secret,
		method: jwt.SigningMethodHS512,
	}
}

type header struct {
	Alg string `json:"alg"`
}

// Encode serializes the claims into a signed token string.
func (c *Codec) Encode(claims *Claims) (string, error) {
	headerJSON, err := json.Marshal(header{Alg: c.method.Alg()})
	if err != nil {
		return "", err
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	signingInput := base64.StdEncoding.EncodeToString(headerJSON) +
		"." + base64.StdEncoding.EncodeToString(claimsJSON)

	sig, err := c.method.Sign(signingInput, c.secret)
	if err != nil {
		return "", err
	}

	return signingInput + "." + base64.StdEncoding.EncodeToString(sig), nil
}

// Decode verifies a token string and returns its claims. The signature is
// checked before the claims block is parsed; a mismatch anywhere yields
// ErrInvalidToken, an unrecognized header algorithm ErrUnsupportedAlgorithm.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	headerJSON, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return nil, ErrInvalidToken
	}
	if method := jwt.GetSigningMethod(h.Alg); method == nil || method.Alg() != c.method.Alg() {
		return nil, ErrUnsupportedAlgorithm
	}

	sig, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}
	// Verify is constant-time on the HMAC comparison.
	if err := c.method.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return nil, ErrInvalidToken
	}

	claimsJSON, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
