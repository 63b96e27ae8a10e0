// Package auth implements API-key authentication for the admin surface.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
)

// ErrAPIKeyNotFound is returned when no key matches the presented hash.
var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// APIKeyRepository provides lookup of API keys by their HMAC-SHA256 hash.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey computes the peppered HMAC-SHA256 hash under which keys are
// stored. Seeding and verification share this derivation.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Guard returns gin middleware that authenticates requests via the
// X-API-Key header. The presented key is HMAC-hashed, looked up, and then
// compared in constant time to guard against timing side-channels even
// though the lookup already succeeded.
func Guard(apikeys APIKeyRepository, pepper []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			unauthorized(c)
			return
		}

		mac := hmac.New(sha256.New, pepper)
		mac.Write([]byte(key))
		sum := mac.Sum(nil)

		info, err := apikeys.FindByHash(c.Request.Context(), hex.EncodeToString(sum))
		if err != nil {
			unauthorized(c)
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
			unauthorized(c)
			return
		}

		c.Set("apiKeyName", info.Name)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": "unauthorized",
	})
}
