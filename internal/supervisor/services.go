package supervisor

import (
	"context"

	"github.com/edgesoc/ids2-supervisor/internal/collaborator"
)

// CollaboratorService keeps one collaborator started for the life of the
// supervisor, restarting it if suture decides to re-invoke Serve after a
// crash. It does not itself poll health; the fallback controller and the
// Control API separately query IsRunning/WaitUntilHealthy.
type CollaboratorService struct {
	handle *collaborator.Handle
}

// NewCollaboratorService wraps handle as a suture.Service.
func NewCollaboratorService(handle *collaborator.Handle) *CollaboratorService {
	return &CollaboratorService{handle: handle}
}

// String implements suture.Service.
func (s *CollaboratorService) String() string {
	return "collaborator-" + string(s.handle.Name())
}

// Serve implements suture.Service: start the collaborator, then wait for
// shutdown, then stop it.
func (s *CollaboratorService) Serve(ctx context.Context) error {
	if err := s.handle.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx := context.Background()
	_ = s.handle.Stop(stopCtx)

	return ctx.Err()
}
