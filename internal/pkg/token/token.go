package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind 表示令牌用途。激活令牌与会话令牌共用同一套签名机制，
// 但校验时必须声明期望的用途，防止跨用途使用。
type Kind string

const (
	KindActivation Kind = "activation" // 账号激活令牌
	KindSession    Kind = "session"    // 登录会话令牌
)

var (
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("token malformed")
	ErrWrongKind = errors.New("token kind mismatch")
)

// Claims 是签名负载：用户 ID（Subject）、邮箱、用途、签发与过期时间。
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Kind  Kind   `json:"kind"`
}

// UserID 解析 Subject 中的用户 ID。
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token subject: %w", err)
	}
	return uint(id), nil
}

// Service 负责签发与校验 HS256 自包含令牌。
//
// 进程级密钥在启动时注入，之后只读。
type Service struct {
	secret []byte
}

// NewService 创建令牌服务。密钥至少 32 字节（256 位）。
func NewService(secret string) (*Service, error) {
	if len(secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	return &Service{secret: []byte(secret)}, nil
}

// Issue 签发指定用途、指定有效期的令牌。
func (s *Service) Issue(userID uint, email string, kind Kind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Kind:  kind,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify 校验令牌签名、有效期与用途。
//
// 过期返回 ErrExpired；签名无效或结构不可解析返回 ErrMalformed；
// 用途与期望不符返回 ErrWrongKind。
func (s *Service) Verify(tokenStr string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		// 签名无效优先于过期：被篡改的令牌一律视为 malformed
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrMalformed
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}
