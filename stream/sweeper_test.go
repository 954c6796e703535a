package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

type fakePurger struct {
	purged  []string
	removed int
	failure error
}

func (f *fakePurger) PurgeItem(ctx context.Context, itemID string) (int, error) {
	if f.failure != nil {
		return 0, f.failure
	}
	f.purged = append(f.purged, itemID)
	return f.removed, nil
}

func removeRecord(itemID string) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventID:   "evt-" + itemID,
		EventName: "REMOVE",
		Change: events.DynamoDBStreamRecord{
			OldImage: map[string]events.DynamoDBAttributeValue{
				"id":    events.NewStringAttribute(itemID),
				"title": events.NewStringAttribute("some meme"),
			},
		},
	}
}

func TestHandleItemEvents_PurgesRemovedItems(t *testing.T) {
	purger := &fakePurger{removed: 3}
	s := NewSweeper(purger, nil)

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		removeRecord("item-1"),
		removeRecord("item-2"),
	}}
	if err := s.HandleItemEvents(context.Background(), event); err != nil {
		t.Fatalf("HandleItemEvents failed: %v", err)
	}

	if len(purger.purged) != 2 {
		t.Fatalf("expected 2 purges, got %d", len(purger.purged))
	}
	if purger.purged[0] != "item-1" || purger.purged[1] != "item-2" {
		t.Errorf("expected [item-1 item-2], got %v", purger.purged)
	}
}

func TestHandleItemEvents_SkipsNonRemoveEvents(t *testing.T) {
	purger := &fakePurger{}
	s := NewSweeper(purger, nil)

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventName: "INSERT", Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"id": events.NewStringAttribute("item-1"),
			},
		}},
		{EventName: "MODIFY", Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"id": events.NewStringAttribute("item-1"),
			},
		}},
	}}
	if err := s.HandleItemEvents(context.Background(), event); err != nil {
		t.Fatalf("HandleItemEvents failed: %v", err)
	}
	if len(purger.purged) != 0 {
		t.Errorf("expected no purges, got %v", purger.purged)
	}
}

func TestHandleItemEvents_FallsBackToKeys(t *testing.T) {
	purger := &fakePurger{}
	s := NewSweeper(purger, nil)

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{
			EventName: "REMOVE",
			Change: events.DynamoDBStreamRecord{
				Keys: map[string]events.DynamoDBAttributeValue{
					"id": events.NewStringAttribute("item-keys-only"),
				},
			},
		},
	}}
	if err := s.HandleItemEvents(context.Background(), event); err != nil {
		t.Fatalf("HandleItemEvents failed: %v", err)
	}
	if len(purger.purged) != 1 || purger.purged[0] != "item-keys-only" {
		t.Errorf("expected purge from keys, got %v", purger.purged)
	}
}

func TestHandleItemEvents_SkipsRecordWithoutID(t *testing.T) {
	purger := &fakePurger{}
	s := NewSweeper(purger, nil)

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventName: "REMOVE"},
	}}
	if err := s.HandleItemEvents(context.Background(), event); err != nil {
		t.Fatalf("expected id-less record to be skipped, got %v", err)
	}
	if len(purger.purged) != 0 {
		t.Errorf("expected no purges, got %v", purger.purged)
	}
}

func TestHandleItemEvents_FailsBatchOnPurgeError(t *testing.T) {
	want := errors.New("table unavailable")
	s := NewSweeper(&fakePurger{failure: want}, nil)

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		removeRecord("item-1"),
	}}
	if err := s.HandleItemEvents(context.Background(), event); !errors.Is(err, want) {
		t.Errorf("expected purge error to fail the batch, got %v", err)
	}
}

func TestGetStringAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id":  events.NewStringAttribute("item-1"),
		"ttl": events.NewNumberAttribute("1234"),
	}

	if got := getStringAttr(image, "id"); got != "item-1" {
		t.Errorf("expected item-1, got %q", got)
	}
	if got := getStringAttr(image, "missing"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}
	if got := getStringAttr(image, "ttl"); got != "" {
		t.Errorf("expected empty string for non-string attribute, got %q", got)
	}
	if got := getStringAttr(nil, "id"); got != "" {
		t.Errorf("expected empty string for nil image, got %q", got)
	}
}
