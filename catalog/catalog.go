// Package catalog owns item records and their aggregate counters.
//
// Items are created once at upload and never updated afterwards except by
// counter mutation or deletion. Counters are adjusted with server-side
// additive updates only, never read-modify-write, so concurrently running
// service instances stay consistent without shared memory.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/memestall/memestall/apperr"
	"github.com/memestall/memestall/store"
)

// Item is a catalog record.
type Item struct {
	ID         string   `dynamodbav:"id" json:"id"`
	Title      string   `dynamodbav:"title" json:"title"`
	MediaRef   string   `dynamodbav:"media_ref" json:"mediaRef"`
	Tags       []string `dynamodbav:"tags" json:"tags"`
	Price      int64    `dynamodbav:"price" json:"price"`
	Likes      int64    `dynamodbav:"likes" json:"likes"`
	Purchases  int64    `dynamodbav:"purchases" json:"purchases"`
	UploadedBy string   `dynamodbav:"uploaded_by" json:"uploadedBy"`
	CreatedAt  string   `dynamodbav:"created_at" json:"createdAt"`
}

// BlobStore is the slice of the blob collaborator the catalog needs.
type BlobStore interface {
	Exists(ctx context.Context, ref string) (bool, error)
	Delete(ctx context.Context, ref string) error
}

// Catalog provides item operations over the store.
type Catalog struct {
	items  *store.Table[Item]
	blobs  BlobStore
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a Catalog.
func New(items *store.Table[Item], blobs BlobStore, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		items:  items,
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create validates the media reference and inserts the item with zeroed
// counters and a fresh id.
func (c *Catalog) Create(ctx context.Context, item Item) (*Item, error) {
	if item.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	if item.MediaRef == "" {
		return nil, apperr.Validation("mediaRef is required")
	}
	if item.Price < 0 {
		return nil, apperr.Validation("price must not be negative")
	}

	// Reject items pointing at media that was never uploaded.
	exists, err := c.blobs.Exists(ctx, item.MediaRef)
	if err != nil {
		return nil, apperr.Store("check media", err)
	}
	if !exists {
		return nil, apperr.Validation("mediaRef does not reference an uploaded object")
	}

	item.ID = c.newID()
	item.Likes = 0
	item.Purchases = 0
	item.CreatedAt = c.now().UTC().Format(time.RFC3339)
	if item.Tags == nil {
		item.Tags = []string{}
	}

	if err := c.items.Put(ctx, item); err != nil {
		return nil, apperr.Store("create item", err)
	}
	return &item, nil
}

// Get retrieves an item by id.
func (c *Catalog) Get(ctx context.Context, id string) (*Item, error) {
	item, err := c.items.Get(ctx, store.Key{Hash: id})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("item not found")
		}
		return nil, apperr.Store("get item", err)
	}
	return item, nil
}

// List returns all items. The first call against an empty catalog seeds the
// starter set; the conditional puts make re-invocation a no-op even when
// several instances race on an empty table.
func (c *Catalog) List(ctx context.Context) ([]Item, error) {
	items, err := c.items.ScanAll(ctx)
	if err != nil {
		return nil, apperr.Store("list items", err)
	}
	if len(items) > 0 {
		return items, nil
	}

	if err := c.seed(ctx); err != nil {
		return nil, err
	}
	items, err = c.items.ScanAll(ctx)
	if err != nil {
		return nil, apperr.Store("list items", err)
	}
	return items, nil
}

// Delete removes the item and best-effort deletes the backing blob.
// Only the uploader or an admin may delete. Ledger rows referencing the
// item are left in place.
func (c *Catalog) Delete(ctx context.Context, id, requester string, admin bool) error {
	item, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.UploadedBy != requester && !admin {
		return apperr.Forbidden("only the uploader may delete an item")
	}

	if err := c.items.Delete(ctx, store.Key{Hash: id}); err != nil {
		return apperr.Store("delete item", err)
	}
	if err := c.blobs.Delete(ctx, item.MediaRef); err != nil {
		c.logger.Warn("failed to delete media object",
			"itemID", id,
			"mediaRef", item.MediaRef,
			"error", err,
		)
	}
	return nil
}

// AdjustLikes applies a like-counter delta. Decrements floor at zero.
func (c *Catalog) AdjustLikes(ctx context.Context, id string, delta int64) error {
	if err := c.items.Add(ctx, store.Key{Hash: id}, "likes", delta); err != nil {
		return apperr.Store("adjust like count", err)
	}
	return nil
}

// AdjustPurchases applies a purchase-counter delta. Decrements floor at zero.
func (c *Catalog) AdjustPurchases(ctx context.Context, id string, delta int64) error {
	if err := c.items.Add(ctx, store.Key{Hash: id}, "purchases", delta); err != nil {
		return apperr.Store("adjust purchase count", err)
	}
	return nil
}
