package projlock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesPerProject(t *testing.T) {
	table := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table.Lock("fac001")
			counter++
			table.Unlock("fac001")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestDistinctProjectsDoNotBlockEachOther(t *testing.T) {
	table := New()

	table.Lock("fac001")
	done := make(chan struct{})
	go func() {
		table.Lock("fac002")
		table.Unlock("fac002")
		close(done)
	}()
	<-done // would deadlock if fac002 waited on fac001's mutex
	table.Unlock("fac001")
}
