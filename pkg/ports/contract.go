package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunAuditStoreContract runs a suite of tests to verify that an AuditStore
// implementation adheres to the defined interface contract.
func RunAuditStoreContract(t *testing.T, store AuditStore) {
	ctx := context.Background()
	bundleID := "contract-test-bundle-" + time.Now().Format("20060102150405.000000")

	t.Run("Save and Load", func(t *testing.T) {
		data := []byte(`{"id":"` + bundleID + `","decision":"recommend_treatment"}`)

		err := store.Save(ctx, bundleID, data)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, bundleID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, data, loaded)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+bundleID)
		assert.ErrorIs(t, err, domain.ErrBundleNotFound)
	})

	t.Run("Write Once", func(t *testing.T) {
		err := store.Save(ctx, bundleID, []byte(`{"tampered":true}`))
		assert.ErrorIs(t, err, domain.ErrBundleExists, "overwriting a bundle must fail")

		loaded, err := store.Load(ctx, bundleID)
		require.NoError(t, err)
		assert.NotContains(t, string(loaded), "tampered")
	})

	t.Run("Concurrent Save", func(t *testing.T) {
		id := bundleID + "-race"
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.Save(ctx, id, []byte(fmt.Sprintf(`{"writer":%d}`, i)))
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrBundleExists)
		}
		assert.Equal(t, 1, succeeded, "exactly one writer wins")
	})

	t.Run("List", func(t *testing.T) {
		id1 := bundleID + "-1"
		id2 := bundleID + "-2"
		require.NoError(t, store.Save(ctx, id1, []byte(`{}`)))
		require.NoError(t, store.Save(ctx, id2, []byte(`{}`)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
