package queries

import (
	"context"

	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
	"pollterra/contexts/poll-platform/orchestrator/ports"
)

// PlatformUseCase serves the orchestrator's read-only surface.
type PlatformUseCase struct {
	Config   ports.ConfigRepository
	Registry ports.PollRegistry
}

func (uc PlatformUseCase) CurrentConfig(ctx context.Context) (entities.Config, error) {
	return uc.Config.LoadConfig(ctx)
}

func (uc PlatformUseCase) CurrentState(ctx context.Context) (entities.State, error) {
	return uc.Config.LoadState(ctx)
}

func (uc PlatformUseCase) RegisteredPolls(ctx context.Context) ([]entities.PollRegistration, error) {
	return uc.Registry.ListPolls(ctx)
}
