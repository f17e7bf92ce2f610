package content

import (
	"context"

	"github.com/JaimeStill/warden/pkg/repository"
)

// System defines the content store operations moderation depends on.
// Remove and Restore take an executor so they can join the caller's transaction.
type System interface {
	Find(ctx context.Context, ref Ref) (*Item, error)
	Create(ctx context.Context, cmd CreateCommand) (*Item, error)
	Remove(ctx context.Context, exec repository.Executor, ref Ref) error
	Restore(ctx context.Context, exec repository.Executor, ref Ref) (bool, error)
}
