package app

import (
	"context"
	"sync"

	"github.com/finsight/finsight-api/internal/research"
	"github.com/finsight/finsight-api/pkg/config"
	"github.com/finsight/finsight-api/pkg/healthprobe"
	"github.com/finsight/finsight-api/pkg/httpserver"
	"github.com/finsight/finsight-api/pkg/kvstore"
	"go.uber.org/zap"
)

// App is the main application orchestrator. Every collaborator — store
// clients, provider clients, cache engines — is constructed here at startup
// and torn down at shutdown; nothing initializes itself on first use.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	service       *research.Service
	stores        []kvstore.Store
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
