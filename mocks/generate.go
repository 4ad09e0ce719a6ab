package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-retail/pkg/marketdata/provider Provider
//go:generate mockgen -destination=./mock_fetcher.go -package=mocks github.com/rxtech-lab/argo-retail/pkg/marketdata Fetcher
//go:generate mockgen -destination=./mock_backend.go -package=mocks github.com/rxtech-lab/argo-retail/internal/trading/backend Backend
//go:generate mockgen -destination=./mock_executor.go -package=mocks github.com/rxtech-lab/argo-retail/internal/trading Executor
