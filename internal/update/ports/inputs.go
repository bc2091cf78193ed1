package ports

import "context"

// UpdateUseCase is the driving port for running one update pass over a
// GitOps working copy.
type UpdateUseCase interface {
	Execute(ctx context.Context) error
}
