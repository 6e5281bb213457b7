package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// SubjectFromJWT validates a token and returns its subject claim.
func SubjectFromJWT(tokenString string, secret []byte) (string, error) {
	if tokenString == "" {
		return "", errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return "", errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("auth: invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("auth: missing subject")
	}
	return claims.Subject, nil
}
