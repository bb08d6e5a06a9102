package submission

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	m := NewManager(nil, nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("a-%d", i)
		_ = m.WithLock(ctx, id, func(context.Context) error { return nil })
	}

	assert.Empty(t, m.locks, "lock entries must be released")
}
