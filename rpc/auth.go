package rpc

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

// IssueToken signs a bearer token whose subject is the caller address.
// Operators mint these out of band; the server only verifies them.
func IssueToken(secret []byte, addr common.Address, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   addr.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// requireAuth resolves the caller address from the Authorization header.
// Every mutating method is attributed to this address; role checks happen
// in the ledger, not here.
func (s *Server) requireAuth(r *http.Request) (common.Address, *RPCError) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return common.Address{}, &RPCError{Code: codeUnauthorized, Message: "authorization required"}
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return common.Address{}, &RPCError{Code: codeUnauthorized, Message: "bearer token required"}
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return common.Address{}, &RPCError{Code: codeUnauthorized, Message: "invalid token"}
	}
	if !common.IsHexAddress(claims.Subject) {
		return common.Address{}, &RPCError{Code: codeUnauthorized, Message: "token subject is not an address"}
	}
	return common.HexToAddress(claims.Subject), nil
}
