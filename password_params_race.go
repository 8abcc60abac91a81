//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func defaultArgon2Params() Argon2Params {
	// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
	return Argon2Params{
		Time:    1,
		Memory:  8 * 1024,
		Threads: 1,
		SaltLen: 16,
		KeyLen:  32,
	}
}

func passwordHashCost() int {
	return bcrypt.MinCost
}
