// test/mocks/mocks.go

// Package mocks contains generated mocks for the application's interfaces.
// To regenerate mocks, run `go generate ./test/mocks` from the root directory.
package mocks

//go:generate mockgen -source=../../internal/core/ports/local_store.go -destination=local_store_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/remote_store.go -destination=remote_store_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/notifier.go -destination=notifier_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/cache.go -destination=cache_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/sync_repository.go -destination=sync_repository_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/sync_service.go -destination=sync_service_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/task_queue.go -destination=task_queue_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/attachment_store.go -destination=attachment_store_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/database.go -destination=database_mock.go -package=mocks
