package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// 密码策略错误。校验按顺序进行，只返回第一个不满足的规则。
var (
	ErrTooShort         = errors.New("password must be at least 8 characters long")
	ErrMissingUppercase = errors.New("password must contain at least one uppercase letter")
	ErrMissingDigit     = errors.New("password must contain at least one digit")
	ErrMissingSpecial   = errors.New("password must contain at least one special character (@, $, !, %, *, ?, &)")

	ErrMismatch = errors.New("invalid credentials")
)

const (
	minLength    = 8
	specialChars = "@$!%*?&"

	// bcrypt 工作因子，对应 10 轮。
	hashCost = 10
)

// Validate 校验候选密码是否满足密码策略。
//
// 规则按顺序检查：长度 ≥ 8、包含大写字母、包含数字、包含特殊字符，
// 第一个失败的规则决定返回的错误。纯函数，无副作用。
func Validate(password string) error {
	if len(password) < minLength {
		return ErrTooShort
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return ErrMissingUppercase
	}
	if !hasDigit {
		return ErrMissingDigit
	}
	if !hasSpecial {
		return ErrMissingSpecial
	}
	return nil
}

// Hash 对明文密码做加盐单向哈希。
//
// 盐由 bcrypt 每次调用随机生成，同一明文两次哈希结果不同。
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify 校验明文密码与存储的哈希是否匹配，不匹配时返回 ErrMismatch。
func Verify(plaintext, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		return ErrMismatch
	}
	return nil
}
