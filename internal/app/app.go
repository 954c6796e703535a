// Package app wires the service components from configuration. Both the
// plain HTTP entrypoint and the Lambda entrypoint build the same server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/memestall/memestall/api"
	"github.com/memestall/memestall/auth"
	"github.com/memestall/memestall/blob"
	"github.com/memestall/memestall/catalog"
	"github.com/memestall/memestall/config"
	"github.com/memestall/memestall/handle"
	"github.com/memestall/memestall/ledger"
	"github.com/memestall/memestall/profile"
	"github.com/memestall/memestall/store"
	"github.com/memestall/memestall/stream"
)

// Build constructs the fully wired API server.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*api.Server, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	ddb := dynamodb.NewFromConfig(awsCfg)
	blobs := blob.New(s3.NewFromConfig(awsCfg), cfg.MediaBucket, cfg.Region)

	items := store.NewTable[catalog.Item](ddb, cfg.ItemsTable, "id")
	likes := store.NewCompositeTable[ledger.Like](ddb, cfg.LikesTable, "user_id", "item_id")
	downloads := store.NewCompositeTable[ledger.Download](ddb, cfg.DownloadsTable, "user_id", "item_id")
	purchases := store.NewCompositeTable[ledger.Purchase](ddb, cfg.PurchasesTable, "user_id", "item_id")
	handles := store.NewTable[handle.Reservation](ddb, cfg.HandlesTable, "handle")
	profiles := store.NewTable[profile.Profile](ddb, cfg.ProfilesTable, "user_id")

	cat := catalog.New(items, blobs, logger)
	led := ledger.New(likes, downloads, purchases, cat, logger)
	registry := handle.New(handles)
	prof := profile.New(profiles, registry, logger)
	verifier := auth.NewCognito(cfg.Region, cfg.CognitoUserPoolID)

	return api.New(cfg, cat, led, prof, blobs, verifier, logger), nil
}

// BuildSweeper constructs the stream sweeper that purges orphaned ledger
// rows after item deletions.
func BuildSweeper(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stream.Sweeper, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	ddb := dynamodb.NewFromConfig(awsCfg)
	blobs := blob.New(s3.NewFromConfig(awsCfg), cfg.MediaBucket, cfg.Region)

	items := store.NewTable[catalog.Item](ddb, cfg.ItemsTable, "id")
	likes := store.NewCompositeTable[ledger.Like](ddb, cfg.LikesTable, "user_id", "item_id")
	downloads := store.NewCompositeTable[ledger.Download](ddb, cfg.DownloadsTable, "user_id", "item_id")
	purchases := store.NewCompositeTable[ledger.Purchase](ddb, cfg.PurchasesTable, "user_id", "item_id")

	cat := catalog.New(items, blobs, logger)
	led := ledger.New(likes, downloads, purchases, cat, logger)
	return stream.NewSweeper(led, logger), nil
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
