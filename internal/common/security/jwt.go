package security

import (
	"errors"
	"time"

	"github.com/Zeygath/th-2024/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	PurposeSession      = "session"
	PurposeConfirmEmail = "confirm_email"

	confirmationTTL = 48 * time.Hour
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

// GenerateToken issues a session token. The jti lets a signed-out token be denylisted.
func GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"purpose": PurposeSession,
		"jti":     uuid.NewString(),
		"exp":     now.Add(config.AppConfig.JWTExp).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// GenerateConfirmationToken issues the token mailed after signup.
func GenerateConfirmationToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"purpose": PurposeConfirmEmail,
		"exp":     now.Add(confirmationTTL).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// ParseConfirmationToken verifies signature and expiry and returns the user id.
func ParseConfirmationToken(tokenString string) (string, error) {
	token, err := jwtauth.VerifyToken(TokenAuth, tokenString)
	if err != nil {
		return "", err
	}
	claims, err := token.AsMap(nil)
	if err != nil {
		return "", err
	}
	if p, _ := claims["purpose"].(string); p != PurposeConfirmEmail {
		return "", errors.New("token is not an email confirmation token")
	}
	return GetUserIDFromClaims(claims)
}

// Helper functions to extract claims, can be used in middleware or services
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetPurposeFromClaims(claims jwt.MapClaims) string {
	p, _ := claims["purpose"].(string)
	return p
}
