package issuer

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 5 * time.Minute

// requestSigner produces the HS256 token the issuing service expects on
// every request. The token binds the key, method, path and body hash.
type requestSigner struct {
	key    string
	secret []byte
	now    func() time.Time
}

func newRequestSigner(key, secret string) *requestSigner {
	return &requestSigner{
		key:    key,
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (s *requestSigner) sign(method, path string, body []byte) (string, error) {
	now := s.now()

	claims := jwt.MapClaims{
		"key":    s.key,
		"method": method,
		"path":   path,
		"iat":    jwt.NewNumericDate(now),
		"exp":    jwt.NewNumericDate(now.Add(tokenTTL)),
	}

	if len(body) > 0 {
		sum := sha256.Sum256(body)
		claims["body"] = map[string]string{
			"alg":  "sha256",
			"hash": hex.EncodeToString(sum[:]),
		}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
