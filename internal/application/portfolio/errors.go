package portfolio

import "estate-backend/internal/pkg/apperror"

var (
	ErrOwnerRepoRequired = apperror.Validation("Please provide a valid owner and repository.")
	ErrOwnerRequired     = apperror.Validation("Please provide Owner (username/org).")
	ErrRepoNotFound      = apperror.NotFound("Repository not found or private. Check owner/repo and token.")
	ErrOwnerNotFound     = apperror.NotFound("GitHub owner not found")
	ErrPrivateNeedsToken = apperror.Validation("Including private repositories requires a token with 'repo' scope.")
	ErrProjectNotFound   = apperror.NotFound("Project not found")
	ErrInvalidColor      = apperror.Validation("Color index must be between 0 and 9.")
)
