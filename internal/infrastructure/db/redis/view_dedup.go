package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultViewWindow = 30 * time.Minute

// ViewDedup remembers which viewer already watched a tour within a window, so
// reloading the playback page does not inflate the views counter.
// Key format: views:<tour_id>:<viewer_key>
type ViewDedup struct {
	client *redis.Client
	window time.Duration
}

// NewViewDedup creates a ViewDedup wrapping the given Redis client.
func NewViewDedup(client *redis.Client, window time.Duration) *ViewDedup {
	if window <= 0 {
		window = defaultViewWindow
	}
	return &ViewDedup{client: client, window: window}
}

// FirstView atomically marks the (tour, viewer) pair and reports whether this
// is the first view inside the window.
func (d *ViewDedup) FirstView(ctx context.Context, tourID, viewerKey string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(tourID, viewerKey), "1", d.window).Result()
	if err != nil {
		return false, fmt.Errorf("view dedup: %w", err)
	}
	return ok, nil
}

func (d *ViewDedup) key(tourID, viewerKey string) string {
	return fmt.Sprintf("views:%s:%s", tourID, viewerKey)
}
