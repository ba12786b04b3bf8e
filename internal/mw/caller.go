package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity headers set by the upstream auth gateway.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Roles understood by the admin API.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

const callerKey = "caller"

// Caller is the operator making an admin request.
type Caller struct {
	TenantID uuid.UUID
	UserID   string
	Role     string
}

// CanMutate reports whether the caller may change state.
func (c Caller) CanMutate() bool {
	return c.Role != RoleViewer
}

func abortError(c *gin.Context, status int, code, message, action string) {
	body := gin.H{"error": code, "message": message}
	if action != "" {
		body["action"] = action
	}
	c.AbortWithStatusJSON(status, body)
}

// RequireCaller resolves the caller identity and rejects viewers on any
// mutating method.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader(HeaderTenantID))
		if err != nil {
			abortError(c, http.StatusUnauthorized, "unauthenticated", "missing or malformed tenant", "")
			return
		}
		caller := Caller{
			TenantID: tenantID,
			UserID:   c.GetHeader(HeaderUserID),
			Role:     c.GetHeader(HeaderUserRole),
		}
		switch caller.Role {
		case RoleAdmin, RoleEditor, RoleViewer:
		case "":
			caller.Role = RoleViewer
		default:
			abortError(c, http.StatusForbidden, "forbidden", "unknown role", "")
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !caller.CanMutate() {
				abortError(c, http.StatusForbidden, "forbidden", "viewers cannot modify resources", "")
				return
			}
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller stored by RequireCaller.
func CallerFrom(c *gin.Context) Caller {
	v, _ := c.Get(callerKey)
	caller, _ := v.(Caller)
	return caller
}
