package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/erp-ledger-engine/internal/domain/shared"
)

// ActorKey is the key used to store the authenticated actor in the context
const ActorKey = "actor"

// Actor middleware authenticates requests with a bearer token and places
// the resulting actor context in the request scope. Tokens are HMAC-signed
// and carry the actor's signing pubkey (sub), role and org, plus an
// optional client-stamped Lamport value.
func Actor(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor retrieves the authenticated actor from the gin context.
func GetActor(c *gin.Context) (shared.ActorContext, bool) {
	value, exists := c.Get(ActorKey)
	if !exists {
		return shared.ActorContext{}, false
	}
	actor, ok := value.(shared.ActorContext)
	return actor, ok
}

func actorFromClaims(claims jwt.MapClaims) (shared.ActorContext, error) {
	sub, _ := claims["sub"].(string)
	orgID, _ := claims["org_id"].(string)
	rawRole, _ := claims["role"].(string)
	if sub == "" || orgID == "" {
		return shared.ActorContext{}, shared.NewValidationError("token missing sub or org_id claim")
	}
	role, err := shared.ParseRole(rawRole)
	if err != nil {
		return shared.ActorContext{}, shared.NewValidationError("token role claim: %v", err)
	}

	actor := shared.ActorContext{Pubkey: sub, Role: role, OrgID: orgID}
	// JSON numbers decode as float64; a missing claim leaves the
	// server to stamp the Lamport value at commit time.
	if lamport, ok := claims["lamport"].(float64); ok && lamport > 0 {
		actor.Lamport = uint64(lamport)
	}
	return actor, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, response)
}
