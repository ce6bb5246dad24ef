package ids

import (
	"sort"
	"sync"
	"testing"
)

func TestNewIsUniqueAndSortable(t *testing.T) {
	const n = 1000
	seen := make(map[string]struct{}, n)
	ordered := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("unexpected id length: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	if !sort.StringsAreSorted(ordered) {
		t.Fatal("ids generated in sequence must sort in generation order")
	}
}

func TestNewIsSafeForConcurrentUse(t *testing.T) {
	const workers = 8
	const perWorker = 200

	var (
		mu  sync.Mutex
		all = make(map[string]struct{}, workers*perWorker)
		wg  sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, New())
			}
			mu.Lock()
			for _, id := range local {
				all[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(all) != workers*perWorker {
		t.Fatalf("expected %d unique ids, got %d", workers*perWorker, len(all))
	}
}
