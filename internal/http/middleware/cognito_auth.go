package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const cognitoClaimsKey contextKey = "cognitoClaims"

// CognitoConfig holds AWS Cognito configuration for JWT validation.
type CognitoConfig struct {
	Region     string
	UserPoolID string
	ClientID   string // App client ID for audience validation

	// JWKSEndpoint overrides the derived JWKS URL (LocalStack, tests).
	JWKSEndpoint string
	// CacheTTL bounds how long a fetched key set is trusted. Zero means 1h.
	CacheTTL time.Duration
}

// CognitoClaims represents the claims in a Cognito JWT.
type CognitoClaims struct {
	jwt.RegisteredClaims
	Email           string   `json:"email"`
	EmailVerified   bool     `json:"email_verified"`
	GivenName       string   `json:"given_name"`
	FamilyName      string   `json:"family_name"`
	CognitoGroups   []string `json:"cognito:groups"`
	TokenUse        string   `json:"token_use"`
	ClientID        string   `json:"client_id"`
	CognitoUsername string   `json:"cognito:username"`
}

// DisplayName joins the name claims for denormalized display fields.
func (c *CognitoClaims) DisplayName() string {
	return strings.TrimSpace(c.GivenName + " " + c.FamilyName)
}

// InGroup reports whether the token carries the given group membership.
// A missing groups claim is treated as an empty set.
func (c *CognitoClaims) InGroup(group string) bool {
	for _, g := range c.CognitoGroups {
		if g == group {
			return true
		}
	}
	return false
}

// CognitoVerifier validates JWTs issued by AWS Cognito. It owns an explicit
// JWKS cache with a fetch timestamp and TTL; a token naming a kid that is not
// in the cached set forces one refresh before the request is rejected.
type CognitoVerifier struct {
	cfg        CognitoConfig
	issuer     string
	jwksURL    string
	ttl        time.Duration
	httpClient *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewCognitoVerifier builds a verifier for the configured user pool.
func NewCognitoVerifier(cfg CognitoConfig) *CognitoVerifier {
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.Region, cfg.UserPoolID)
	jwksURL := cfg.JWKSEndpoint
	if jwksURL == "" {
		jwksURL = fmt.Sprintf("%s/.well-known/jwks.json", issuer)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CognitoVerifier{
		cfg:        cfg,
		issuer:     issuer,
		jwksURL:    jwksURL,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Middleware returns the token verification middleware. It accepts both ID
// tokens and access tokens.
func (v *CognitoVerifier) Middleware() func(http.Handler) http.Handler {
	if v == nil || (v.cfg.UserPoolID == "" && v.cfg.JWKSEndpoint == "") {
		// Reject all requests if not configured
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"cognito auth not configured"}`, http.StatusUnauthorized)
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(auth, "Bearer ")

			// Parse the token header to get the key ID
			token, _, err := jwt.NewParser().ParseUnverified(tokenString, &CognitoClaims{})
			if err != nil {
				http.Error(w, `{"error":"invalid token format"}`, http.StatusUnauthorized)
				return
			}

			kid, ok := token.Header["kid"].(string)
			if !ok {
				http.Error(w, `{"error":"missing key id in token"}`, http.StatusUnauthorized)
				return
			}

			pubKey, err := v.publicKey(kid)
			if err != nil {
				http.Error(w, `{"error":"unable to resolve signing key"}`, http.StatusUnauthorized)
				return
			}

			claims := &CognitoClaims{}
			validatedToken, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return pubKey, nil
			}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())

			if err != nil || !validatedToken.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			// Validate audience/client_id for ID tokens
			if v.cfg.ClientID != "" && claims.TokenUse == "id" {
				aud, _ := claims.GetAudience()
				validAud := false
				for _, a := range aud {
					if a == v.cfg.ClientID {
						validAud = true
						break
					}
				}
				if !validAud {
					http.Error(w, `{"error":"invalid audience"}`, http.StatusUnauthorized)
					return
				}
			}

			// For access tokens, validate client_id claim
			if claims.TokenUse == "access" && v.cfg.ClientID != "" {
				if claims.ClientID != v.cfg.ClientID {
					http.Error(w, `{"error":"invalid client_id"}`, http.StatusUnauthorized)
					return
				}
			}

			ctx := context.WithValue(r.Context(), cognitoClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CognitoClaimsFromContext retrieves Cognito claims from the request context.
func CognitoClaimsFromContext(ctx context.Context) (*CognitoClaims, bool) {
	claims, ok := ctx.Value(cognitoClaimsKey).(*CognitoClaims)
	return claims, ok
}

// ContextWithClaims returns a context carrying the given claims. Handler
// tests use this to simulate an authenticated request.
func ContextWithClaims(ctx context.Context, claims *CognitoClaims) context.Context {
	return context.WithValue(ctx, cognitoClaimsKey, claims)
}

// publicKey resolves a signing key from the cache, refreshing the key set
// when the cache is past its TTL or the kid is unknown.
func (v *CognitoVerifier) publicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if time.Since(v.fetchedAt) < v.ttl {
		if key, ok := v.keys[kid]; ok {
			return key, nil
		}
	}

	keys, err := fetchJWKS(v.httpClient, v.jwksURL)
	if err != nil {
		return nil, err
	}
	v.keys = keys
	v.fetchedAt = time.Now()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	return key, nil
}

// jwksResponse represents the JWKS response from Cognito.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// fetchJWKS fetches the JWKS from the given URL.
func fetchJWKS(client *http.Client, url string) (map[string]*rsa.PublicKey, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS request failed with status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}

		pubKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			continue
		}
		keys[key.Kid] = pubKey
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no valid RSA keys found in JWKS")
	}

	return keys, nil
}

// parseRSAPublicKey parses RSA public key components from base64url-encoded strings.
func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	return &rsa.PublicKey{N: n, E: e}, nil
}
