package httpkit

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Role names carried in the "roles" claim of access tokens.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"
)

// ContextCallerKey is the gin context key holding the authenticated caller.
const ContextCallerKey = "caller"

// Identity is the authenticated caller as handlers see it.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	// IsPrivileged reports whether the caller runs the back office: bulk
	// upload, reassignment, deletion, and visibility over every record.
	// Everyone else is a telecaller limited to their own assignments.
	IsPrivileged() bool
	IsAuthenticated() bool
}

type caller struct {
	userID uuid.UUID
	roles  []string
}

func (c caller) UserID() uuid.UUID        { return c.userID }
func (c caller) Roles() []string          { return c.roles }
func (c caller) HasRole(role string) bool { return slices.Contains(c.roles, role) }
func (c caller) IsAuthenticated() bool    { return c.userID != uuid.Nil }

func (c caller) IsPrivileged() bool {
	return c.HasRole(RoleAdmin) || c.HasRole(RoleManager)
}

func newCaller(userID uuid.UUID, roles []string) caller {
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			normalized = append(normalized, role)
		}
	}
	return caller{userID: userID, roles: normalized}
}

// GetIdentity returns the caller stored by AuthRequired, or an
// unauthenticated identity.
func GetIdentity(c *gin.Context) Identity {
	if value, ok := c.Get(ContextCallerKey); ok {
		if id, ok := value.(caller); ok {
			return id
		}
	}
	return caller{}
}

// MustGetIdentity aborts with 401 and returns nil when nobody is signed in.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		abortUnauthorized(c, "unauthorized")
		return nil
	}
	return id
}

// SetIdentity stores the caller on the context the way AuthRequired does.
// Test servers use it in place of a signed token.
func SetIdentity(c *gin.Context, userID uuid.UUID, roles []string) {
	c.Set(ContextCallerKey, newCaller(userID, roles))
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message})
}
