//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// race builds run the whole suite under strict timeouts
	return bcrypt.DefaultCost
}
