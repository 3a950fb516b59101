package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"leveler/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the bot. All Record
// methods are safe on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool // instruments exist and may be recorded
	mu            sync.RWMutex

	// Metric instruments
	activitiesCounter         metric.Int64Counter
	xpGrantsCounter           metric.Int64Counter
	xpGrantedCounter          metric.Int64Counter
	levelUpsCounter           metric.Int64Counter
	leaderChangesCounter      metric.Int64Counter
	roleFailuresCounter       metric.Int64Counter
	checksDroppedCounter      metric.Int64Counter
	natsMessagesPublishedCntr metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		// Default() carries its own schema URL
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("leveler")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) counter(name, description string) (metric.Int64Counter, error) {
	c, err := mp.meter.Int64Counter(name,
		metric.WithDescription(description),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return c, nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	if mp.activitiesCounter, err = mp.counter(ActivitiesTotal, "Total number of XP-eligible activities received"); err != nil {
		return err
	}
	if mp.xpGrantsCounter, err = mp.counter(XPGrantsTotal, "Total number of committed XP grants"); err != nil {
		return err
	}
	if mp.xpGrantedCounter, err = mp.counter(XPGrantedTotal, "Total XP granted"); err != nil {
		return err
	}
	if mp.levelUpsCounter, err = mp.counter(LevelUpsTotal, "Total number of level-ups"); err != nil {
		return err
	}
	if mp.leaderChangesCounter, err = mp.counter(LeaderChangesTotal, "Total number of top-rank changes"); err != nil {
		return err
	}
	if mp.roleFailuresCounter, err = mp.counter(RoleOperationFailuresTotal, "Total number of failed reward role operations"); err != nil {
		return err
	}
	if mp.checksDroppedCounter, err = mp.counter(CheckQueueDroppedTotal, "Total number of top-rank checks dropped by a full queue"); err != nil {
		return err
	}
	if mp.natsMessagesPublishedCntr, err = mp.counter(NATSMessagesPublishedTotal, "Total number of NATS messages published"); err != nil {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.enabled = false
	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordActivity records an inbound activity by kind
func (mp *MetricsProvider) RecordActivity(kind string) {
	if !mp.isEnabled() {
		return
	}
	mp.activitiesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, kind)),
	)
}

// RecordXPGrant records a committed grant and the XP it added
func (mp *MetricsProvider) RecordXPGrant(reason string, amount int64) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String(LabelReason, reason))
	mp.xpGrantsCounter.Add(context.Background(), 1, attrs)
	mp.xpGrantedCounter.Add(context.Background(), amount, attrs)
}

// RecordLevelUp records a grant that crossed at least one level
func (mp *MetricsProvider) RecordLevelUp(reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.levelUpsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// RecordLeaderChange records a top-rank change
func (mp *MetricsProvider) RecordLeaderChange() {
	if !mp.isEnabled() {
		return
	}
	mp.leaderChangesCounter.Add(context.Background(), 1)
}

// RecordRoleFailure records a failed reward role add or remove
func (mp *MetricsProvider) RecordRoleFailure(operation, errorType string) {
	if !mp.isEnabled() {
		return
	}
	mp.roleFailuresCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
			attribute.String(LabelErrorType, errorType),
		),
	)
}

// RecordCheckDropped records a top-rank check rejected by a full queue
func (mp *MetricsProvider) RecordCheckDropped() {
	if !mp.isEnabled() {
		return
	}
	mp.checksDroppedCounter.Add(context.Background(), 1)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCntr.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled checks if instruments are ready to record
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	return globalMetrics.Shutdown(ctx)
}
