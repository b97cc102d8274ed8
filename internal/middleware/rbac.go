package middleware

import (
	"net/http"

	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

// roleRank orders roles; a higher rank includes every lower one
var roleRank = map[string]int{
	models.RoleAdmin:      1,
	models.RoleSuperAdmin: 2,
}

// HasRole reports whether role grants at least required
func HasRole(role, required string) bool {
	have, ok := roleRank[role]
	if !ok {
		return false
	}
	return have >= roleRank[required]
}

// RequireRole rejects requests whose admin role is below roleName. It must
// run after AuthMiddleware.Authenticate.
func RequireRole(roleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "User not authenticated")
				return
			}

			if !HasRole(claims.Role, roleName) {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
