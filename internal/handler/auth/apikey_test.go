package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubKeys struct {
	byHash map[string]*APIKeyInfo
}

func (s *stubKeys) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if info, ok := s.byHash[hash]; ok {
		return info, nil
	}
	return nil, ErrAPIKeyNotFound
}

func guardedEngine(pepper []byte, keys *stubKeys) *gin.Engine {
	engine := gin.New()
	engine.GET("/secret", Guard(keys, pepper), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return engine
}

func TestHashKey_Deterministic(t *testing.T) {
	a := HashKey([]byte("pepper"), "key")

	assert.Len(t, a, 64)
	assert.Equal(t, a, HashKey([]byte("pepper"), "key"))
	assert.NotEqual(t, a, HashKey([]byte("other"), "key"), "pepper changes the hash")
	assert.NotEqual(t, a, HashKey([]byte("pepper"), "key2"))
}

func TestGuard(t *testing.T) {
	pepper := []byte("pepper")
	keys := &stubKeys{byHash: map[string]*APIKeyInfo{}}
	hash := HashKey(pepper, "valid-key")
	keys.byHash[hash] = &APIKeyInfo{ID: "k1", KeyHash: hash, Name: "admin"}

	engine := guardedEngine(pepper, keys)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"valid key", "valid-key", http.StatusOK},
		{"unknown key", "wrong-key", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secret", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
