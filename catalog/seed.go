package catalog

import (
	"context"
	"time"

	"github.com/memestall/memestall/apperr"
)

// starterItems is the fixed bootstrap set. IDs are deterministic so the
// seed stays idempotent across instances and restarts.
var starterItems = []Item{
	{
		ID:       "starter-0001",
		Title:    "Distracted Engineer",
		MediaRef: "starter/distracted-engineer.png",
		Tags:     []string{"classic", "work"},
		Price:    0,
	},
	{
		ID:       "starter-0002",
		Title:    "This Is Fine",
		MediaRef: "starter/this-is-fine.png",
		Tags:     []string{"classic", "fire"},
		Price:    100,
	},
	{
		ID:       "starter-0003",
		Title:    "Galaxy Brain",
		MediaRef: "starter/galaxy-brain.png",
		Tags:     []string{"brain"},
		Price:    250,
	},
	{
		ID:       "starter-0004",
		Title:    "Surprised Cat",
		MediaRef: "starter/surprised-cat.png",
		Tags:     []string{"cat"},
		Price:    0,
	},
	{
		ID:       "starter-0005",
		Title:    "Deploy Friday",
		MediaRef: "starter/deploy-friday.png",
		Tags:     []string{"work", "chaos"},
		Price:    500,
	},
}

// seed inserts the starter items. Each insert is conditional on the id
// being absent, so a concurrent or repeated seed never duplicates.
func (c *Catalog) seed(ctx context.Context) error {
	created := 0
	for _, item := range starterItems {
		item.UploadedBy = "memestall"
		item.CreatedAt = c.now().UTC().Format(time.RFC3339)
		ok, err := c.items.PutIfAbsent(ctx, item)
		if err != nil {
			return apperr.Store("seed catalog", err)
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		c.logger.Info("seeded starter items", "count", created)
	}
	return nil
}
