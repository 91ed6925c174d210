package middleware

import (
	"net/url"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"
)

// IdentityKey lets tests inject an authenticated identity without a JWT.
const IdentityKey = "auth0_id"

// Auth validates Auth0-issued JWTs and rejects unauthenticated requests.
func Auth(domain, audience string) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
	)
	if err != nil {
		return nil, err
	}

	mw := jwtmiddleware.New(jwtValidator.ValidateToken)
	return adapter.Wrap(mw.CheckJWT), nil
}

// GetAuth0ID extracts the caller's identity: the sub claim of a validated
// JWT, or the test identity key when a fake auth middleware set one.
func GetAuth0ID(c *gin.Context) (string, bool) {
	claims, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if ok {
		return claims.RegisteredClaims.Subject, true
	}

	if id, ok := c.Get(IdentityKey); ok {
		if s, ok := id.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// GetAccessToken returns the bearer token of the current request, for
// forwarding to the identity provider's userinfo endpoint.
func GetAccessToken(c *gin.Context) (string, bool) {
	token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
