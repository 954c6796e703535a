// Command sweeper runs the ledger-cleanup Lambda, triggered by the items
// table stream.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/memestall/memestall/config"
	"github.com/memestall/memestall/internal/app"
)

func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg)

	sweeper, err := app.BuildSweeper(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build sweeper", "error", err)
		os.Exit(1)
	}

	lambda.Start(sweeper.HandleItemEvents)
}
