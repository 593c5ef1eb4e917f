package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp-ledger-engine/internal/domain/shared"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func actorRouter() (*gin.Engine, *shared.ActorContext) {
	gin.SetMode(gin.TestMode)
	captured := &shared.ActorContext{}
	router := gin.New()
	router.Use(Actor(testSecret))
	router.GET("/test", func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		*captured = actor
		c.Status(http.StatusOK)
	})
	return router, captured
}

func TestActorMiddleware(t *testing.T) {
	t.Run("ValidToken", func(t *testing.T) {
		router, captured := actorRouter()

		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":     "pk-alice",
			"role":    "finance",
			"org_id":  "org1",
			"lamport": float64(7),
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "pk-alice", captured.Pubkey)
		assert.Equal(t, shared.RoleFinance, captured.Role)
		assert.Equal(t, "org1", captured.OrgID)
		assert.Equal(t, uint64(7), captured.Lamport)
	})

	t.Run("NoLamportClaimDefaultsToZero", func(t *testing.T) {
		router, captured := actorRouter()

		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":    "pk-alice",
			"role":   "manager",
			"org_id": "org1",
		})
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, uint64(0), captured.Lamport)
	})

	t.Run("MissingToken", func(t *testing.T) {
		router, _ := actorRouter()

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		router, _ := actorRouter()

		token := signToken(t, "other-secret", jwt.MapClaims{
			"sub":    "pk-alice",
			"role":   "finance",
			"org_id": "org1",
		})
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		router, _ := actorRouter()

		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":    "pk-alice",
			"role":   "superuser",
			"org_id": "org1",
		})
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("MissingOrgClaim", func(t *testing.T) {
		router, _ := actorRouter()

		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":  "pk-alice",
			"role": "finance",
		})
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestGetActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsFalseWhenUnset", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		_, ok := GetActor(c)
		assert.False(t, ok)
	})

	t.Run("ReturnsFalseOnWrongType", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(ActorKey, "not-an-actor")
		_, ok := GetActor(c)
		assert.False(t, ok)
	})
}
