// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package parishsync

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session identifies the logged-in operator. Every write entry point
// takes a Session explicitly so queued payments are stamped with the
// operator who actually took them, not whoever is logged in when the
// drain eventually runs.
type Session struct {
	UserID   int64
	Username string
	Role     string
}

// SessionAuth issues and validates signed session tokens.
type SessionAuth struct {
	secret []byte
}

// NewSessionAuth creates a session authenticator.
func NewSessionAuth(secret string) *SessionAuth {
	return &SessionAuth{secret: []byte(secret)}
}

// sessionClaims are the JWT claims carried by a session token.
type sessionClaims struct {
	Username string `json:"uname"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for an authenticated operator.
func (a *SessionAuth) IssueToken(user User, expiration time.Duration) (string, error) {
	claims := &sessionClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "go-parishsync",
			Subject:   strconv.FormatInt(user.UserID, 10),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken parses a session token and returns the operator session.
func (a *SessionAuth) ValidateToken(tokenString string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Session{}, err
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Session{}, fmt.Errorf("invalid session token")
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("missing sub (user ID) in token")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("malformed sub claim: %w", err)
	}
	return Session{UserID: userID, Username: claims.Username, Role: claims.Role}, nil
}
