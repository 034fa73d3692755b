package apperr

import "github.com/vuxmai/catalog-admin/pkg/zerror"

const (
	ValidationErrorCode = "VALIDATION_FAILED"
)

var (
	ValidationErr = zerror.NewValidationFailed(ValidationErrorCode, "validation error")

	ErrProductNotFound  = zerror.NewNotFound("PRODUCT_NOT_FOUND", "product not found")
	ErrCategoryNotFound = zerror.NewValidationFailed("CATEGORY_NOT_FOUND", "referenced category does not exist")
	ErrColorNotFound    = zerror.NewValidationFailed("COLOR_NOT_FOUND", "referenced color does not exist")
	ErrSlugTaken        = zerror.NewConflict("SLUG_TAKEN", "slug was claimed by a concurrent write")
	ErrImageRequired    = zerror.NewValidationFailed("IMAGE_REQUIRED", "image1 is required")

	ErrAdminEmailTaken     = zerror.NewConflict("ADMIN_EMAIL_TAKEN", "an admin with this email already exists")
	ErrInvalidCredentials  = zerror.NewUnauthorized("INVALID_CREDENTIALS", "invalid email or password")
	ErrInvalidToken        = zerror.NewUnauthorized("INVALID_TOKEN", "token is invalid or expired")
	ErrTokenRevoked        = zerror.NewUnauthorized("TOKEN_REVOKED", "token has been revoked")
	ErrInvalidResetToken   = zerror.NewUnauthorized("INVALID_RESET_TOKEN", "reset token is invalid or expired")
	ErrAdminNotFound       = zerror.NewNotFound("ADMIN_NOT_FOUND", "admin not found")
	ErrMissingAuthHeader   = zerror.NewUnauthorized("MISSING_AUTH_HEADER", "missing or malformed authorization header")
)
