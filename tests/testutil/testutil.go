// Package testutil holds fixtures shared by service and handler tests: actors
// for each role, a fake transaction scope with a testify mock per repository
// and an HTTP client that decodes the response envelope.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrocredit/backend/internal/domain/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewTestUUID derives a stable UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// OperatorActor returns a credit operator with a stable user ID.
func OperatorActor() identity.Actor {
	return identity.Actor{UserID: NewTestUUID("operator"), Role: identity.RoleOperator}
}

// AdminActor returns an administrator with a stable user ID.
func AdminActor() identity.Actor {
	return identity.Actor{UserID: NewTestUUID("admin"), Role: identity.RoleAdmin}
}

// FarmerActor returns a farmer bound to subjectID.
func FarmerActor(subjectID uuid.UUID) identity.Actor {
	return identity.Actor{UserID: NewTestUUID("farmer:" + subjectID.String()), Role: identity.RoleFarmer, SubjectID: &subjectID}
}

// ContextWithTimeout returns a context cancelled when the test ends or the
// timeout elapses.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
