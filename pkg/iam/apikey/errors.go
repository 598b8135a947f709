package apikey

import "github.com/Abraxas-365/clientportal/pkg/errx"

var ErrRegistry = errx.NewRegistry("APIKEY")

var (
	CodeInvalid           = ErrRegistry.Register("INVALID", errx.TypeUnauthenticated, "API key is invalid")
	CodeInsufficientScope = ErrRegistry.Register("INSUFFICIENT_SCOPE", errx.TypeForbidden, "API key lacks the required scope")
	CodeNotFound          = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, "API key not found")
	CodeRateLimited       = ErrRegistry.Register("RATE_LIMITED", errx.TypeRateLimited, "API key rate limit exceeded")
	CodeInvalidScope      = ErrRegistry.Register("INVALID_SCOPE", errx.TypeMalformed, "Unknown scope")
	CodeInvalidRequest    = ErrRegistry.Register("INVALID_REQUEST", errx.TypeMalformed, "Invalid API key request")
	CodeGenerationFailed  = ErrRegistry.Register("GENERATION_FAILED", errx.TypeInternal, "Could not generate API key")
)

func ErrInvalid() *errx.Error           { return ErrRegistry.New(CodeInvalid) }
func ErrInsufficientScope() *errx.Error { return ErrRegistry.New(CodeInsufficientScope) }
func ErrNotFound() *errx.Error          { return ErrRegistry.New(CodeNotFound) }
func ErrRateLimited() *errx.Error       { return ErrRegistry.New(CodeRateLimited) }
func ErrInvalidScope() *errx.Error      { return ErrRegistry.New(CodeInvalidScope) }
func ErrGenerationFailed() *errx.Error  { return ErrRegistry.New(CodeGenerationFailed) }

func ErrInvalidRequest(reason string) *errx.Error {
	return ErrRegistry.New(CodeInvalidRequest).WithDetail("reason", reason)
}
