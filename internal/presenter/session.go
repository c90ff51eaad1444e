// ABOUTME: Presenter session identity and the provisioner that resolves it
// ABOUTME: SimulatedProvisioner stands in for a real avatar service with a fixed stream reference

package presenter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Defaults for simulated sessions.
const (
	DefaultAvatarID       = "mate-alpha"
	DefaultStreamRef      = "https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerJoyrides.mp4"
	DefaultSetupDelay     = 800 * time.Millisecond
	DefaultSpeechDuration = 3500 * time.Millisecond
)

// Session is one live presenter session.
type Session struct {
	ID        string `json:"sessionId"`
	AvatarID  string `json:"avatarId"`
	StreamRef string `json:"streamRef"`
}

// Provisioner performs the asynchronous setup of a presenter session.
type Provisioner interface {
	Provision(ctx context.Context, avatarID string) (Session, error)
}

// ProvisionerFunc adapts a function to Provisioner.
type ProvisionerFunc func(ctx context.Context, avatarID string) (Session, error)

// Provision calls f.
func (f ProvisionerFunc) Provision(ctx context.Context, avatarID string) (Session, error) {
	return f(ctx, avatarID)
}

// SimulatedProvisioner waits Delay and returns a session pointing at StreamRef.
type SimulatedProvisioner struct {
	Delay     time.Duration
	StreamRef string
}

// Provision implements Provisioner.
func (p SimulatedProvisioner) Provision(ctx context.Context, avatarID string) (Session, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Session{}, ctx.Err()
		}
	}

	streamRef := p.StreamRef
	if streamRef == "" {
		streamRef = DefaultStreamRef
	}
	return Session{
		ID:        newSessionID(),
		AvatarID:  avatarID,
		StreamRef: streamRef,
	}, nil
}

func newSessionID() string {
	return "sess_" + uuid.New().String()
}
