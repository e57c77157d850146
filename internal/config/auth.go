package config

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const serviceRole = "service_role"

// CheckServiceRole requires the key's role claim to be service_role. The
// signature is not verified here; the storage API does that.
func CheckServiceRole(key string) error {
	// Opaque secret keys carry no claims
	if strings.HasPrefix(key, "sb_secret_") {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return fmt.Errorf("service key is not a valid JWT: %w", err)
	}

	role, _ := claims["role"].(string)
	if role != serviceRole {
		return fmt.Errorf("service key has role %q, want %q", role, serviceRole)
	}
	return nil
}
