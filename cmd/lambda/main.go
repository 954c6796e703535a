// Command lambda runs the marketplace behind API Gateway.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/memestall/memestall/api"
	"github.com/memestall/memestall/config"
	"github.com/memestall/memestall/internal/app"
)

func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg)

	server, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	lambda.Start(api.GatewayHandler(server))
}
