package middleware

import (
	"fmt"
	"net/http"
	"strings"
)

// Group names match the Cognito user pool groups.
const (
	GroupPatients  = "Patients"
	GroupProviders = "Providers"
)

// RequireAnyGroup gates a route on group membership: the request passes iff
// the verified claims carry at least one of the allowed groups. Gates compose;
// stacking several ANDs them together. Responds 403 naming the required
// groups, or 401 when no verified identity is present at all.
func RequireAnyGroup(allowed ...string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, g := range allowed {
		allowedSet[g] = struct{}{}
	}
	forbiddenBody := fmt.Sprintf(`{"error":"requires membership in one of: %s"}`, strings.Join(allowed, ", "))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := CognitoClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
				return
			}
			for _, g := range claims.CognitoGroups {
				if _, ok := allowedSet[g]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, forbiddenBody, http.StatusForbidden)
		})
	}
}
