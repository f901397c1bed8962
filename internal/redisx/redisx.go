package redisx

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/yourorg/listing-editor/listingapi"
)

const (
    // snapshotTTL bounds how long an edit-session baseline survives without a
    // submit; a stale session reloads from the backend.
    snapshotTTL = 30 * time.Minute
    // submitLockTTL caps how long a crashed submit can keep a listing locked.
    submitLockTTL = 30 * time.Second
)

type Client struct{ rdb *redis.Client }

func New(addr string, password string, db int) *Client {
    rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
    return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
    return c.rdb.Ping(ctx).Err()
}

func snapshotKey(id int64) string { return fmt.Sprintf("listing:baseline:%d", id) }
func lockKey(id int64) string     { return fmt.Sprintf("listing:submitlock:%d", id) }

// PutSnapshot caches the edit-session baseline.
func (c *Client) PutSnapshot(ctx context.Context, snap listingapi.Snapshot) error {
    b, err := json.Marshal(snap)
    if err != nil {
        return err
    }
    return c.rdb.Set(ctx, snapshotKey(snap.ID), string(b), snapshotTTL).Err()
}

// GetSnapshot returns the cached baseline for a listing, if any.
func (c *Client) GetSnapshot(ctx context.Context, id int64) (listingapi.Snapshot, bool, error) {
    var snap listingapi.Snapshot
    val, err := c.rdb.Get(ctx, snapshotKey(id)).Result()
    if errors.Is(err, redis.Nil) {
        return snap, false, nil
    }
    if err != nil {
        return snap, false, err
    }
    if err := json.Unmarshal([]byte(val), &snap); err != nil {
        return snap, false, err
    }
    return snap, true, nil
}

func (c *Client) DropSnapshot(ctx context.Context, id int64) error {
    return c.rdb.Del(ctx, snapshotKey(id)).Err()
}

// AcquireSubmitLock takes the cross-instance in-flight flag for a listing.
// Returns false when another submit holds it.
func (c *Client) AcquireSubmitLock(ctx context.Context, id int64) (bool, error) {
    return c.rdb.SetNX(ctx, lockKey(id), "1", submitLockTTL).Result()
}

func (c *Client) ReleaseSubmitLock(ctx context.Context, id int64) error {
    return c.rdb.Del(ctx, lockKey(id)).Err()
}
