package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

const APIKeyHeader = "X-API-Key"

var (
	ErrMissingAPIKey = errors.New("missing api key")
	ErrInvalidAPIKey = errors.New("invalid api key")
)

type Verifier interface {
	VerifyKey(key string) error
}

// StaticVerifier checks requests against a single key configured at startup.
// An empty key disables verification entirely.
type StaticVerifier struct {
	key string
}

func NewStaticVerifier(key string) *StaticVerifier {
	return &StaticVerifier{key: key}
}

func (v *StaticVerifier) VerifyKey(key string) error {
	if v.key == "" {
		return nil
	}
	if key == "" {
		return ErrMissingAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(v.key), []byte(key)) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}

func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.VerifyKey(r.Header.Get(APIKeyHeader)); err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
