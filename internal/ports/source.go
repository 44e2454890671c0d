package ports

import "context"

// NodeSource is the remote industrial data source the acquisition loop polls.
// Connect failures end the session; ReadNode failures degrade only the one
// channel for the one cycle.
type NodeSource interface {
	Connect(ctx context.Context) error
	ReadNode(ctx context.Context, nodeID string) (float64, error)
	Disconnect(ctx context.Context) error
}
