//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/review-broker/internal/app"
)

// InitializeApp wires the server process.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(AppSet)
	return &app.App{}, nil, nil
}

// InitializeToolkit wires the stores and services used by the CLI.
func InitializeToolkit(ctx context.Context) (*app.Toolkit, func(), error) {
	wire.Build(ToolkitSet)
	return &app.Toolkit{}, nil, nil
}
