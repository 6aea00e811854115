package jellyfin

import (
	"context"
)

// Service refreshes the media server library.
type Service interface {
	Refresh(ctx context.Context) error
}

type noopService struct{}

func (noopService) Refresh(context.Context) error { return nil }

// Noop returns a Service that never contacts a server.
func Noop() Service { return noopService{} }
