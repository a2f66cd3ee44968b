package helpers

import (
	"context"
	"errors"
	"strings"
	"time"

	"api/internal/configuration"
	"api/internal/models"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenConfig holds configuration for creating a specific token type.
type tokenConfig struct {
	audience      string
	expiryMinutes int
	challengeID   *uuid.UUID
}

// createToken consolidates claim assembly and signing for all token types.
func createToken(jwtSecret string, user *models.User, config tokenConfig) (string, error) {
	claims := models.UserClaims{
		Email:  user.Email,
		UserID: user.ID,
		Realm:  user.Realm,
		Aud:    config.audience,
		Issuer: configuration.AppName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  &jwt.NumericDate{Time: time.Now()},
			ExpiresAt: &jwt.NumericDate{Time: time.Now().Add(time.Minute * time.Duration(config.expiryMinutes))},
		},
	}

	if config.challengeID != nil {
		claims.ChallengeID = config.challengeID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// NewChallengeToken creates the restricted token handed back when a challenge
// starts. It only grants access to the challenge endpoints for its own flow:
// the audience is scoped to the email-code factor and the challenge ID is
// pinned in the claims.
func NewChallengeToken(
	jwtSecret string,
	user *models.User,
	challengeID uuid.UUID,
	expiryMinutes int,
) (string, error) {
	return createToken(jwtSecret, user, tokenConfig{
		audience:      configuration.AudienceChallengeToken,
		expiryMinutes: expiryMinutes,
		challengeID:   &challengeID,
	})
}

// ParseToken parses and validates a JWT token without audience validation.
// It validates signature, expiry, and issuer only.
// Audience validation is delegated to the authenticator middleware.
// The requireBearer parameter controls whether the "Bearer " prefix is required.
func ParseToken(jwtSecret string, tokenString string, requireBearer bool) (models.UserClaims, error) {
	if requireBearer {
		if !strings.HasPrefix(tokenString, "Bearer ") {
			return models.UserClaims{}, errors.New("invalid token")
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}

	claims := &models.UserClaims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		},
	)
	if err != nil {
		return models.UserClaims{}, errors.New("invalid token")
	}

	return *claims, nil
}

func CreateHash(password string) (string, error) {
	argonParams := argon2id.Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  32,
		KeyLength:   32,
	}
	hash, err := argon2id.CreateHash(password, &argonParams)
	if err != nil {
		return "", errors.New("can not create hash password")
	}

	return hash, nil
}

func GetUserClaims(c context.Context) (models.UserClaims, error) {
	value, ok := c.Value(models.UserClaimKey{}).(models.UserClaims)
	if !ok {
		return models.UserClaims{}, errors.New("invalid user claims")
	}
	return value, nil
}
