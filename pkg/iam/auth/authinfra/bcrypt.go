package authinfra

import (
	"github.com/Abraxas-365/clientportal/pkg/errx"
	"golang.org/x/crypto/bcrypt"
)

// BcryptPasswordService implements auth.PasswordService.
type BcryptPasswordService struct {
	cost int
}

func NewBcryptPasswordService(cost int) *BcryptPasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordService{cost: cost}
}

func (s *BcryptPasswordService) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errx.Wrap(err, "failed to hash password", errx.TypeMalformed)
	}
	return string(hash), nil
}

// Compare is false for an empty hash, so OAuth-only accounts never match.
func (s *BcryptPasswordService) Compare(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
