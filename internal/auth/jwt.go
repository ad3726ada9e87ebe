package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	"ticketCountManagement/models"
)

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Unit int64  `json:"unit,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for p valid for ttl.
func IssueToken(p Principal, secret string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	c := claims{
		Name: p.Username,
		Role: string(p.Role),
		Unit: p.UnitID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken validates tokenStr and returns the principal it carries.
func ParseToken(tokenStr, secret string) (Principal, error) {
	if secret == "" {
		return Principal{}, errors.New("jwt secret is empty")
	}
	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return Principal{}, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Name == "" || c.Subject == "" {
		return Principal{}, errors.New("invalid claims")
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Principal{}, errors.New("invalid subject")
	}
	role := models.Role(strings.ToLower(c.Role))
	if role != models.RoleAdmin && role != models.RoleEditor {
		return Principal{}, errors.New("invalid role")
	}
	if role == models.RoleEditor && c.Unit == 0 {
		return Principal{}, errors.New("editor token without unit")
	}
	return Principal{UserID: id, Username: c.Name, Role: role, UnitID: c.Unit}, nil
}

// BearerToken extracts the token of an "Authorization: Bearer ..." value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// ParseFromMD extracts and validates a Bearer JWT from gRPC metadata.
func ParseFromMD(ctx context.Context, secret string) (Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Principal{}, errors.New("missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return Principal{}, errors.New("missing authorization")
	}
	tok, ok := BearerToken(vals[0])
	if !ok {
		return Principal{}, errors.New("invalid authorization header")
	}
	return ParseToken(tok, secret)
}
