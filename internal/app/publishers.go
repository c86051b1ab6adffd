package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/publish"
)

type dialFunc func(ctx context.Context, o publish.SocketIOOptions) (publish.Publisher, error)

func dialSocketIO(ctx context.Context, o publish.SocketIOOptions) (publish.Publisher, error) {
	return publish.Dial(ctx, o)
}

// publisher assembles the event sinks for one run. Events are always logged;
// a socket.io publisher is added when a URL is configured.
func (a *App) publisher(ctx context.Context) (publish.Publisher, error) {
	sinks := publish.Multi{publish.LogPublisher{}}
	if a.config.PublishURL == "" {
		return sinks, nil
	}

	a.logger.Debug("Connecting event publisher.", "url", a.config.PublishURL, "namespace", a.config.PublishNamespace)
	sio, err := a.dial(ctx, publish.SocketIOOptions{
		URL:       a.config.PublishURL,
		Namespace: a.config.PublishNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect publisher: %w", err)
	}
	return append(sinks, sio), nil
}
