package interfaces

import (
	"context"

	"trading-journal/internal/types"
)

type Bridge interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	State() types.BridgeState
	Snapshot() types.BridgeSnapshot
}
