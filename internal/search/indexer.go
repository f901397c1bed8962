package search

import (
    "context"
    "log"

    "github.com/yourorg/listing-editor/internal/events"
)

// Indexer is a stub that consumes listing.updated events and logs them.
// Swap this with a real search index client later.
type Indexer struct {
    Pub events.Publisher
}

func (i *Indexer) Run(ctx context.Context) {
    sub := i.Pub.SubscribeListingUpdated()
    for {
        select {
        case <-ctx.Done():
            return
        case evt := <-sub:
            log.Printf("indexer: listing.updated id=%d added=%d relabeled=%d deleted=%d", evt.ListingID, evt.Added, evt.Relabeled, evt.Deleted)
        }
    }
}
