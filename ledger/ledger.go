// Package ledger records per-(user, item) interaction facts and drives the
// catalog's aggregate counters.
//
// Each fact row is the authoritative source for idempotency: a counter is
// touched only when the conditional write that created or removed the fact
// actually won. Under concurrent duplicate requests the store guarantees
// exactly one winner per key, so the counter moves exactly once regardless
// of arrival order. There is no transaction spanning a fact write and its
// counter update; a crash between the two leaves the fact as ground truth
// and the counter transiently off by one, with no automatic reconciliation.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/memestall/memestall/apperr"
	"github.com/memestall/memestall/catalog"
	"github.com/memestall/memestall/store"
)

// Like is a per-(user, item) like fact. Existence means the user currently
// likes the item; at most one row per pair.
type Like struct {
	UserID    string `dynamodbav:"user_id" json:"userId"`
	ItemID    string `dynamodbav:"item_id" json:"itemId"`
	CreatedAt string `dynamodbav:"created_at" json:"createdAt"`
}

// Download is a per-(user, item) download fact. A re-download refreshes the
// timestamp instead of adding a row, so per-item counts are distinct
// downloaders, not download events.
type Download struct {
	UserID       string `dynamodbav:"user_id" json:"userId"`
	ItemID       string `dynamodbav:"item_id" json:"itemId"`
	DownloadedAt string `dynamodbav:"downloaded_at" json:"downloadedAt"`
}

// Purchase is a per-(user, item) purchase fact. Existence is permanent.
type Purchase struct {
	UserID      string `dynamodbav:"user_id" json:"userId"`
	ItemID      string `dynamodbav:"item_id" json:"itemId"`
	PurchasedAt string `dynamodbav:"purchased_at" json:"purchasedAt"`
}

// UserDownload pairs a downloaded item with its download time.
type UserDownload struct {
	Item         catalog.Item `json:"item"`
	DownloadedAt string       `json:"downloadedAt"`
}

// Index names on the ledger tables.
const (
	ItemIndex     = "item-index"      // likes + downloads: partition by item_id
	UserTimeIndex = "user-time-index" // downloads: partition by user_id, sorted by downloaded_at
)

// Ledger provides interaction operations over the store and catalog.
type Ledger struct {
	likes     *store.Table[Like]
	downloads *store.Table[Download]
	purchases *store.Table[Purchase]
	catalog   *catalog.Catalog
	logger    *slog.Logger

	now func() time.Time
}

// New creates a Ledger.
func New(likes *store.Table[Like], downloads *store.Table[Download], purchases *store.Table[Purchase], cat *catalog.Catalog, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		likes:     likes,
		downloads: downloads,
		purchases: purchases,
		catalog:   cat,
		logger:    logger,
		now:       time.Now,
	}
}

func (l *Ledger) timestamp() string {
	return l.now().UTC().Format(time.RFC3339)
}

// Like records that the user likes the item. Returns false without touching
// the counter when the like already exists; a blind client retry is the
// defined no-op, not an error.
func (l *Ledger) Like(ctx context.Context, userID, itemID string) (bool, error) {
	ok, err := l.likes.PutIfAbsent(ctx, Like{
		UserID:    userID,
		ItemID:    itemID,
		CreatedAt: l.timestamp(),
	})
	if err != nil {
		return false, apperr.Store("record like", err)
	}
	if !ok {
		return false, nil
	}
	if err := l.catalog.AdjustLikes(ctx, itemID, +1); err != nil {
		// The like row is ground truth; the counter is transiently low.
		l.logger.Warn("like recorded but counter update failed",
			"userID", userID, "itemID", itemID, "error", err)
		return true, err
	}
	return true, nil
}

// Unlike removes the user's like. Returns false without touching the
// counter when no like exists.
func (l *Ledger) Unlike(ctx context.Context, userID, itemID string) (bool, error) {
	ok, err := l.likes.DeleteIfPresent(ctx, store.Key{Hash: userID, Range: itemID})
	if err != nil {
		return false, apperr.Store("remove like", err)
	}
	if !ok {
		return false, nil
	}
	if err := l.catalog.AdjustLikes(ctx, itemID, -1); err != nil {
		l.logger.Warn("like removed but counter update failed",
			"userID", userID, "itemID", itemID, "error", err)
		return true, err
	}
	return true, nil
}

// RecordDownload upserts the download fact, refreshing the timestamp on
// re-download. Never touches a counter.
func (l *Ledger) RecordDownload(ctx context.Context, userID, itemID string) error {
	err := l.downloads.Put(ctx, Download{
		UserID:       userID,
		ItemID:       itemID,
		DownloadedAt: l.timestamp(),
	})
	if err != nil {
		return apperr.Store("record download", err)
	}
	return nil
}

// ListDownloadsForUser returns the user's downloads newest first. Items
// deleted since the download are skipped.
func (l *Ledger) ListDownloadsForUser(ctx context.Context, userID string) ([]UserDownload, error) {
	rows, err := l.downloads.QueryIndex(ctx, UserTimeIndex, "user_id", userID, true)
	if err != nil {
		return nil, apperr.Store("list downloads", err)
	}
	return l.resolveDownloads(ctx, rows)
}

func (l *Ledger) resolveDownloads(ctx context.Context, rows []Download) ([]UserDownload, error) {
	// Fan-out lookups; fine at this scale, batch-fetch when it is not.
	out := make([]UserDownload, 0, len(rows))
	for _, row := range rows {
		item, err := l.catalog.Get(ctx, row.ItemID)
		if err != nil {
			if errors.Is(err, apperr.NotFound("")) {
				continue
			}
			return nil, err
		}
		out = append(out, UserDownload{Item: *item, DownloadedAt: row.DownloadedAt})
	}
	return out, nil
}

// CountDownloadsForItem returns the number of distinct users who have ever
// downloaded the item.
func (l *Ledger) CountDownloadsForItem(ctx context.Context, itemID string) (int, error) {
	n, err := l.downloads.CountIndex(ctx, ItemIndex, "item_id", itemID)
	if err != nil {
		return 0, apperr.Store("count downloads", err)
	}
	return n, nil
}

// RecordPurchase records the purchase fact. The counter moves exactly once
// per (user, item) pair: only the conditional write that created the row
// increments it.
func (l *Ledger) RecordPurchase(ctx context.Context, userID, itemID string) (bool, error) {
	ok, err := l.purchases.PutIfAbsent(ctx, Purchase{
		UserID:      userID,
		ItemID:      itemID,
		PurchasedAt: l.timestamp(),
	})
	if err != nil {
		return false, apperr.Store("record purchase", err)
	}
	if !ok {
		return false, nil
	}
	if err := l.catalog.AdjustPurchases(ctx, itemID, +1); err != nil {
		l.logger.Warn("purchase recorded but counter update failed",
			"userID", userID, "itemID", itemID, "error", err)
		return true, err
	}
	return true, nil
}

// HasLiked reports whether the user currently likes the item.
func (l *Ledger) HasLiked(ctx context.Context, userID, itemID string) (bool, error) {
	_, err := l.likes.Get(ctx, store.Key{Hash: userID, Range: itemID})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, apperr.Store("check like", err)
	}
	return true, nil
}

// HasPurchased reports whether the user has ever purchased the item.
func (l *Ledger) HasPurchased(ctx context.Context, userID, itemID string) (bool, error) {
	_, err := l.purchases.Get(ctx, store.Key{Hash: userID, Range: itemID})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, apperr.Store("check purchase", err)
	}
	return true, nil
}

// PurgeItem removes every like and download row referencing the item.
// Meant for cleanup after an item delete; purchase rows are receipts and
// are never removed. Returns the number of rows deleted.
func (l *Ledger) PurgeItem(ctx context.Context, itemID string) (int, error) {
	removed := 0

	likes, err := l.likes.QueryIndex(ctx, ItemIndex, "item_id", itemID, false)
	if err != nil {
		return removed, apperr.Store("query likes for purge", err)
	}
	for _, row := range likes {
		if err := l.likes.Delete(ctx, store.Key{Hash: row.UserID, Range: row.ItemID}); err != nil {
			return removed, apperr.Store("purge like", err)
		}
		removed++
	}

	downloads, err := l.downloads.QueryIndex(ctx, ItemIndex, "item_id", itemID, false)
	if err != nil {
		return removed, apperr.Store("query downloads for purge", err)
	}
	for _, row := range downloads {
		if err := l.downloads.Delete(ctx, store.Key{Hash: row.UserID, Range: row.ItemID}); err != nil {
			return removed, apperr.Store("purge download", err)
		}
		removed++
	}
	return removed, nil
}

// ListLikedItems returns the items the user currently likes.
func (l *Ledger) ListLikedItems(ctx context.Context, userID string) ([]catalog.Item, error) {
	rows, err := l.likes.Query(ctx, userID, false)
	if err != nil {
		return nil, apperr.Store("list likes", err)
	}

	items := make([]catalog.Item, 0, len(rows))
	for _, row := range rows {
		item, err := l.catalog.Get(ctx, row.ItemID)
		if err != nil {
			if errors.Is(err, apperr.NotFound("")) {
				continue // orphaned like for a deleted item
			}
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}
