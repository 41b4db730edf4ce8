package jwt_auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing   = errors.New("token is missing")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrClaimsMissing  = errors.New("token is missing required claims")
)

type ITokenVerifier interface {
	VerifyToken(ctx context.Context, rawToken string) (*IdentityClaims, error)
}

// IdentityClaims 驗證通過後, 身分解析需要的欄位
type IdentityClaims struct {
	Subject  string
	Email    string
	FullName string
}

// Claims auth provider (Supabase) access token 的 payload
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

type UserMetadata struct {
	FullName string `json:"full_name"`
}

type Options struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// JWTVerifier 驗證簽章, exp, iss, aud
type JWTVerifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewHMACVerifier 使用共用 secret (HS256)
func NewHMACVerifier(secret []byte, opts Options) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	keyFunc := func(token *jwt.Token) (any, error) {
		return secret, nil
	}
	return newJWTVerifier(keyFunc, []string{"HS256", "HS384", "HS512"}, opts), nil
}

// NewJWKSVerifier 使用 auth provider 公開的 JWKS, ctx 結束後停止背景更新
func NewJWKSVerifier(ctx context.Context, jwksURL string, opts Options) (*JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is empty")
	}
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks from %s: %w", jwksURL, err)
	}
	return newJWTVerifier(k.Keyfunc, []string{"RS256", "ES256", "EdDSA"}, opts), nil
}

func newJWTVerifier(keyFunc jwt.Keyfunc, methods []string, opts Options) *JWTVerifier {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	return &JWTVerifier{
		keyFunc: keyFunc,
		parser:  jwt.NewParser(parserOpts...),
	}
}

// VerifyToken 驗證 bearer token
//
// 錯誤:
//   - ErrTokenMissing: 空字串
//   - ErrTokenMalformed: 非三段式 token, 不做任何 I/O
//   - ErrTokenInvalid: 簽章, 演算法, exp, iss 或 aud 驗證失敗
//   - ErrClaimsMissing: 缺少 sub 或 email
func (v *JWTVerifier) VerifyToken(ctx context.Context, rawToken string) (*IdentityClaims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrTokenMissing
	}
	if strings.Count(rawToken, ".") != 2 {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(rawToken, claims, v.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrClaimsMissing
	}

	return &IdentityClaims{
		Subject:  claims.Subject,
		Email:    claims.Email,
		FullName: claims.UserMetadata.FullName,
	}, nil
}

var _ ITokenVerifier = (*JWTVerifier)(nil)
