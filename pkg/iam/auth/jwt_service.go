package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/config"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// JWTService is the HS256 credential codec.
type JWTService struct {
	secretKey []byte
	issuer    string
	now       func() time.Time
}

// NewJWTService builds a codec around secretKey. An empty key is accepted here
// and reported by Issue, so construction never panics in tests.
func NewJWTService(secretKey, issuer string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		now:       time.Now,
	}
}

func NewJWTServiceFromConfig(cfg *config.JWTConfig) *JWTService {
	return NewJWTService(cfg.SecretKey, cfg.Issuer)
}

// WithClock replaces the time source used for iat, exp and validation.
func (j *JWTService) WithClock(now func() time.Time) *JWTService {
	j.now = now
	return j
}

// wireClaims is the signed payload. Pointers make absent fields detectable.
type wireClaims struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	IsAdmin       *bool  `json:"isAdmin"`
	EmailVerified *bool  `json:"emailVerified"`
	jwt.RegisteredClaims
}

// Issue signs claims valid for ttl from now. IssuedAt and ExpiresAt on the
// input are ignored.
func (j *JWTService) Issue(claims Claims, ttl time.Duration) (string, error) {
	if len(j.secretKey) == 0 {
		return "", ErrMissingSecret()
	}

	now := j.now()
	isAdmin, verified := claims.IsAdmin, claims.EmailVerified
	wc := wireClaims{
		UserID:        claims.UserID.String(),
		Email:         claims.Email,
		IsAdmin:       &isAdmin,
		EmailVerified: &verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(j.secretKey)
	if err != nil {
		return "", ErrMissingSecret().WithCause(err)
	}
	return signed, nil
}

// Verify checks the signature first and only then the embedded fields.
func (j *JWTService) Verify(tokenString string) (*Claims, error) {
	if err := checkSignatureEncoding(tokenString); err != nil {
		return nil, err
	}

	var wc wireClaims
	_, err := jwt.ParseWithClaims(tokenString, &wc, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, classify(err)
	}

	if wc.UserID == "" || wc.Email == "" || wc.IsAdmin == nil || wc.EmailVerified == nil || wc.IssuedAt == nil {
		return nil, ErrTokenMalformed(errors.New("required claim missing"))
	}

	return &Claims{
		UserID:        kernel.UserID(wc.UserID),
		Email:         wc.Email,
		IsAdmin:       *wc.IsAdmin,
		EmailVerified: *wc.EmailVerified,
		IssuedAt:      wc.IssuedAt.Time,
		ExpiresAt:     wc.ExpiresAt.Time,
	}, nil
}

var (
	lenientSegments = jwt.NewParser()
	strictSegments  = jwt.NewParser(jwt.WithStrictDecoding())
)

// checkSignatureEncoding rejects a signature segment that only decodes when
// its unused trailing bits are ignored. Such a segment differs from the one
// that was issued, so it is reported as tampering rather than malformed.
func checkSignatureEncoding(tokenString string) error {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil
	}
	if _, err := lenientSegments.DecodeSegment(parts[2]); err != nil {
		return nil
	}
	if _, err := strictSegments.DecodeSegment(parts[2]); err != nil {
		return ErrTokenSignatureInvalid(err)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed(err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignatureInvalid(err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired(err)
	default:
		return ErrTokenMalformed(err)
	}
}
