package middleware

import (
	"member-insight-service/internal/models"

	"github.com/gofiber/fiber/v3"
)

const (
	CompanyIDHeader = "X-Company-Id"
	RoleHeader      = "X-Role"

	sessionLocalKey = "session"
)

// Session is derived from request headers by the upstream gateway; this
// service trusts them as-is.
type Session struct {
	CompanyID string
	Role      models.SessionRole
}

// WithSession derives the session for every request and stores it in the
// request locals. Absent headers fall back to the default company and the
// admin role.
func WithSession() fiber.Handler {
	return func(c fiber.Ctx) error {
		companyID := c.Get(CompanyIDHeader)
		if companyID == "" {
			companyID = models.DefaultCompanyID
		}

		role := models.RoleAdmin
		if c.Get(RoleHeader) == string(models.RoleMember) {
			role = models.RoleMember
		}

		c.Locals(sessionLocalKey, Session{
			CompanyID: companyID,
			Role:      role,
		})

		return c.Next()
	}
}

// SessionFrom returns the session stored by WithSession.
func SessionFrom(c fiber.Ctx) Session {
	if session, ok := c.Locals(sessionLocalKey).(Session); ok {
		return session
	}
	return Session{CompanyID: models.DefaultCompanyID, Role: models.RoleAdmin}
}

// AuthorizeCompany reports whether the session may act on the given company.
func AuthorizeCompany(session Session, companyID string) bool {
	return session.CompanyID == companyID
}
