package refresh

import (
    "context"
    "sync"
    "time"
)

type Job struct {
    ListingID int64
}

// Refresher re-fetches committed listings in the background so the cached
// edit baseline catches up after an update. Deduped per listing.
type Refresher struct {
    ch    chan Job
    inFly sync.Map // listing id -> struct{}
    Do    func(ctx context.Context, j Job)
}

func New(capacity int, workerCount int, do func(ctx context.Context, j Job)) *Refresher {
    if capacity <= 0 { capacity = 256 }
    if workerCount <= 0 { workerCount = 2 }
    r := &Refresher{ ch: make(chan Job, capacity), Do: do }
    for i := 0; i < workerCount; i++ {
        go r.worker()
    }
    return r
}

func (r *Refresher) Enqueue(j Job) {
    if _, exists := r.inFly.LoadOrStore(j.ListingID, struct{}{}); exists {
        return
    }
    select {
    case r.ch <- j:
    default:
        // drop if saturated
        r.inFly.Delete(j.ListingID)
    }
}

func (r *Refresher) worker() {
    for j := range r.ch {
        ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
        func() {
            defer func() {
                r.inFly.Delete(j.ListingID)
                cancel()
            }()
            if r.Do != nil { r.Do(ctx, j) }
        }()
    }
}
