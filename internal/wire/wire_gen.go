// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"

	"github.com/sevigo/review-broker/internal/app"
	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/jobs"
	"github.com/sevigo/review-broker/internal/llm"
	"github.com/sevigo/review-broker/internal/results"
	"github.com/sevigo/review-broker/internal/server"
	"github.com/sevigo/review-broker/internal/webhook"
)

// InitializeApp wires the server process.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	configConfig, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	loggerConfig := provideLoggerConfig(configConfig)
	writer := provideLogWriter(configConfig)
	slogLogger := provideSlogLogger(loggerConfig, writer)
	dbDB, cleanup, err := provideDatabase(configConfig)
	if err != nil {
		return nil, nil, err
	}
	client, cleanup2, err := provideRedisClient(configConfig)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	taskStore := provideTaskStore(configConfig, dbDB)
	cacheStore := provideCacheStore(configConfig, dbDB, client)
	deliveryStore := provideDeliveryStore(configConfig, dbDB, client)
	workQueue := provideWorkQueue(configConfig, client)
	jobDispatcher := jobs.NewDispatcher(taskStore, cacheStore, workQueue, slogLogger)
	receiver := webhook.NewReceiver(deliveryStore, jobDispatcher, slogLogger)
	service := results.NewService(taskStore, slogLogger)
	limiters := provideLimiters(configConfig, client)
	handler := server.NewRouter(configConfig, jobDispatcher, receiver, service, limiters, slogLogger)
	serverServer := server.NewServer(configConfig, handler, slogLogger)
	diffFetcherFactory, err := provideFetcherFactory(configConfig, slogLogger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	model, err := provideGeneratorModel(ctx, configConfig, slogLogger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	promptManager, err := llm.NewPromptManager()
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	reviewAnalyzer := provideAnalyzer(configConfig, model, promptManager, slogLogger)
	reviewJob := provideReviewJob(configConfig, taskStore, cacheStore, diffFetcherFactory, reviewAnalyzer, slogLogger)
	pool := providePool(configConfig, workQueue, reviewJob, slogLogger)
	deliveryJanitor := provideJanitor(configConfig, deliveryStore, slogLogger)
	appApp := app.NewApp(configConfig, serverServer, pool, deliveryJanitor, workQueue, slogLogger)
	return appApp, func() {
		cleanup2()
		cleanup()
	}, nil
}

// InitializeToolkit wires the stores and services used by the CLI.
func InitializeToolkit(ctx context.Context) (*app.Toolkit, func(), error) {
	configConfig, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	loggerConfig := provideLoggerConfig(configConfig)
	writer := provideLogWriter(configConfig)
	slogLogger := provideSlogLogger(loggerConfig, writer)
	dbDB, cleanup, err := provideDatabase(configConfig)
	if err != nil {
		return nil, nil, err
	}
	client, cleanup2, err := provideRedisClient(configConfig)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	taskStore := provideTaskStore(configConfig, dbDB)
	service := results.NewService(taskStore, slogLogger)
	cacheStore := provideCacheStore(configConfig, dbDB, client)
	workQueue := provideWorkQueue(configConfig, client)
	jobDispatcher := jobs.NewDispatcher(taskStore, cacheStore, workQueue, slogLogger)
	deliveryStore := provideDeliveryStore(configConfig, dbDB, client)
	deliveryJanitor := provideJanitor(configConfig, deliveryStore, slogLogger)
	toolkit := app.NewToolkit(configConfig, service, jobDispatcher, deliveryJanitor, slogLogger)
	return toolkit, func() {
		cleanup2()
		cleanup()
	}, nil
}
