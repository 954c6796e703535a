// Package stream provides DynamoDB Streams handlers for ledger cleanup.
//
// Deleting an item is a single-key write; like and download rows that
// reference it stay behind and are skipped on read. The sweeper consumes the
// items table stream and removes those rows asynchronously, so storage is
// reclaimed without ever coupling the delete to a cross-table transaction.
package stream

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

// LedgerPurger is the slice of the ledger the sweeper needs.
type LedgerPurger interface {
	PurgeItem(ctx context.Context, itemID string) (int, error)
}

// Sweeper processes items-table stream events and purges orphaned ledger rows.
type Sweeper struct {
	ledger LedgerPurger
	logger *slog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(ledger LedgerPurger, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		ledger: ledger,
		logger: logger,
	}
}

// HandleItemEvents processes a batch of stream records. Designed to be used
// as an AWS Lambda handler. A failed record fails the batch; Streams
// redelivers, and PurgeItem is idempotent under redelivery.
func (s *Sweeper) HandleItemEvents(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := s.processRecord(ctx, record); err != nil {
			s.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (s *Sweeper) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	// Only item deletions leave orphans behind.
	if record.EventName != "REMOVE" {
		return nil
	}

	itemID := getStringAttr(record.Change.OldImage, "id")
	if itemID == "" {
		// TTL expiries and manual deletes both carry the old image; a
		// record without one has nothing to purge.
		itemID = getStringAttr(record.Change.Keys, "id")
	}
	if itemID == "" {
		s.logger.Warn("remove record without item id", "eventID", record.EventID)
		return nil
	}

	removed, err := s.ledger.PurgeItem(ctx, itemID)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("purged orphaned ledger rows",
			"itemID", itemID,
			"count", removed,
		)
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
