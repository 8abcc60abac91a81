//go:build !race

package auth

import "golang.org/x/crypto/bcrypt"

func defaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    3,
		Memory:  64 * 1024,
		Threads: 2,
		SaltLen: 16,
		KeyLen:  32,
	}
}

func passwordHashCost() int {
	return bcrypt.DefaultCost + 2
}
