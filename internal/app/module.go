package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/pointsledger/internal/app/api/server"
	paymentevent "github.com/fatflowers/pointsledger/internal/app/service/payment_event"
	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/app/service/rollover"
	"github.com/fatflowers/pointsledger/internal/app/service/statistics"
	"github.com/fatflowers/pointsledger/internal/app/service/subscription"
	webhooklog "github.com/fatflowers/pointsledger/internal/app/service/webhook_log"
	"github.com/fatflowers/pointsledger/internal/platform/db"
	"github.com/fatflowers/pointsledger/internal/platform/lock"
	"github.com/fatflowers/pointsledger/internal/platform/mailer"
	"github.com/fatflowers/pointsledger/internal/platform/mq"
	"github.com/fatflowers/pointsledger/pkg/config"
	"github.com/fatflowers/pointsledger/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// Infra is everything the services need that talks to the outside world.
var Infra = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	lock.Module,
	mq.Module,
	mailer.Module,
)

// Services holds the domain layer without the HTTP server.
var Services = fx.Options(
	points.Module,
	subscription.Module,
	statistics.Module,
	webhooklog.Module,
	paymentevent.Module,
	rollover.Module,
)

var Module = fx.Options(
	Infra,
	Services,
	server.Module,
)
