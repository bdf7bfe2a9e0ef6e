package memory_test

import (
	"testing"

	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/memory"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memory.New()
	})
}
