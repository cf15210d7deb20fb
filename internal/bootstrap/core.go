// Package bootstrap assembles the CRM core shared by the API server and the
// tracking worker: the key-value backend, the registry, log and queue, and
// the dispatcher on top of them.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/rentalcrm-backend/internal/activities"
	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
	"github.com/angelmondragon/rentalcrm-backend/internal/tasks"
	"github.com/angelmondragon/rentalcrm-backend/internal/tracking"
	"github.com/angelmondragon/rentalcrm-backend/pkg/config"
	"github.com/angelmondragon/rentalcrm-backend/pkg/db"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv/rediskv"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv/sqlkv"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
	"github.com/angelmondragon/rentalcrm-backend/pkg/metrics"
	"github.com/angelmondragon/rentalcrm-backend/pkg/migrate"
	"github.com/angelmondragon/rentalcrm-backend/pkg/pubsub"
	"github.com/angelmondragon/rentalcrm-backend/pkg/redis"
)

// Options selects the optional dependencies a binary needs.
type Options struct {
	// PubSub forces a Pub/Sub client even without a task alert topic.
	PubSub bool
	// Subscriptions are verified to exist when the Pub/Sub client starts.
	Subscriptions []string
}

// Core holds the wired CRM components. Redis, DB, PubSub and Metrics are nil
// when the configuration does not call for them.
type Core struct {
	Store      kv.Store
	Redis      *redis.Client
	DB         *db.Client
	PubSub     *pubsub.Client
	Metrics    *prometheus.Registry
	Contacts   *contacts.Registry
	Activities *activities.Log
	Tasks      *tasks.Queue
	Dispatcher *tracking.Dispatcher

	closers []func() error
}

// Build connects the configured backends and wires the CRM core. On error
// anything already opened is closed.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) (*Core, error) {
	core := &Core{}
	if err := core.build(ctx, cfg, logg, opts); err != nil {
		_ = core.Close()
		return nil, err
	}
	return core, nil
}

func (c *Core) build(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) error {
	var err error
	if cfg.Redis.Configured() {
		c.Redis, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		c.closers = append(c.closers, c.Redis.Close)
	}

	if err := c.openStore(ctx, cfg, logg); err != nil {
		return err
	}

	if opts.PubSub || cfg.PubSub.TaskAlertTopic != "" {
		c.PubSub, err = pubsub.NewClient(ctx, cfg.GCP, logg, opts.Subscriptions...)
		if err != nil {
			return fmt.Errorf("pubsub: %w", err)
		}
		c.closers = append(c.closers, c.PubSub.Close)
	}

	if cfg.Metrics.Enabled {
		c.Metrics = prometheus.NewRegistry()
		c.Metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	contactOpts := []contacts.Option{contacts.WithLogger(logg)}
	if cfg.CRM.ResolveLock {
		if c.Redis == nil {
			return fmt.Errorf("resolve lock requires redis")
		}
		lock, err := contacts.NewRedisEmailLock(c.Redis, cfg.CRM.ResolveLockTTL, cfg.CRM.ResolveLockWait)
		if err != nil {
			return fmt.Errorf("resolve lock: %w", err)
		}
		contactOpts = append(contactOpts, contacts.WithLocker(lock))
	}
	c.Contacts, err = contacts.NewRegistry(c.Store, contactOpts...)
	if err != nil {
		return fmt.Errorf("contact registry: %w", err)
	}

	c.Activities, err = activities.NewLog(c.Store, nil, nil)
	if err != nil {
		return fmt.Errorf("activity log: %w", err)
	}

	taskOpts := []tasks.Option{tasks.WithDefaultAssignee(cfg.CRM.DefaultAssignee)}
	if c.PubSub != nil {
		if notifier := tasks.NewAlertNotifier(c.PubSub, cfg.PubSub.TaskAlertTopic, cfg.PubSub.TaskAlertTimeout, logg); notifier != nil {
			taskOpts = append(taskOpts, tasks.WithNotifier(notifier))
			c.closers = append(c.closers, func() error {
				notifier.Wait()
				return nil
			})
		}
	}
	c.Tasks, err = tasks.NewQueue(c.Store, taskOpts...)
	if err != nil {
		return fmt.Errorf("task queue: %w", err)
	}

	var registerer prometheus.Registerer
	if c.Metrics != nil {
		registerer = c.Metrics
	}
	c.Dispatcher, err = tracking.NewDispatcher(c.Contacts, c.Activities, c.Tasks, logg,
		tracking.WithMetrics(metrics.NewEventMetrics(registerer)),
		tracking.WithAbandonedBookingSLA(cfg.CRM.AbandonedBookingSLA),
		tracking.WithChatPreviewLength(cfg.Tracking.ChatPreviewLength),
	)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	return nil
}

func (c *Core) openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	backend := cfg.KV.Normalized()
	switch backend {
	case config.KVBackendMemory:
		c.Store = kv.NewMemoryStore()
		logg.Warn(logg.WithField(ctx, "kv_backend", backend), "using in-memory store; crm data is lost on restart")
	case config.KVBackendRedis:
		if c.Redis == nil {
			return fmt.Errorf("redis backend selected without a redis endpoint")
		}
		c.Store = rediskv.New(c.Redis)
	case config.KVBackendPostgres, config.KVBackendSQLite:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		c.DB = client
		c.closers = append(c.closers, client.Close)
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			return fmt.Errorf("dev migrations: %w", err)
		}
		c.Store = sqlkv.New(client.DB())
	default:
		return fmt.Errorf("unsupported kv backend %q", cfg.KV.Backend)
	}
	return nil
}

// Pingers lists the remote dependencies checked by readiness probes.
func (c *Core) Pingers() map[string]kv.Pinger {
	pingers := map[string]kv.Pinger{}
	if pinger, ok := c.Store.(kv.Pinger); ok {
		pingers["kv"] = pinger
	}
	if c.Redis != nil {
		pingers["redis"] = c.Redis
	}
	return pingers
}

// Close releases every opened client in reverse order.
func (c *Core) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i]())
	}
	c.closers = nil
	return err
}
