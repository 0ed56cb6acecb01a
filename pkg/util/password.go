package util

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost 密码散列强度，注册写入和登录校验共用
const PasswordHashCost = 10

// HashPassword 生成明文密码的 bcrypt 散列
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword 校验明文密码与散列是否匹配
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
