package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

const subjectKey = "auth_subject"

// TokenVerifier checks a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// ErrorWriter renders an error and aborts the request.
type ErrorWriter func(c *gin.Context, err error)

// Auth rejects requests without a valid bearer token. A missing token is reported as
// models.ErrUnauthorized, a rejected one with the verifier's error.
func Auth(verifier TokenVerifier, fail ErrorWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			fail(c, models.ErrUnauthorized)
			return
		}

		subject, err := verifier.Verify(token)
		if err != nil {
			fail(c, err)
			return
		}

		c.Set(subjectKey, subject)
		c.Next()
	}
}

// Subject returns the authenticated user of the request.
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
