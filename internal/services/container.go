package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/metrics"
	"waste-ninja-go/internal/models"
	"waste-ninja-go/internal/services/annotator"
	"waste-ninja-go/internal/services/classifier"
	"waste-ninja-go/internal/services/frameprocessing"
	"waste-ninja-go/internal/services/health"
	"waste-ninja-go/internal/services/messaging"
	"waste-ninja-go/internal/services/publisher"
	"waste-ninja-go/internal/services/streamcapture"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config     *config.Config
	Metrics    *metrics.Metrics
	Classifier *classifier.Service
	Annotator  *annotator.Service
	Publisher  *publisher.Service
	Processor  *frameprocessing.FrameProcessor
	Events     *messaging.Events

	// Optional, nil when disabled or unavailable.
	Messaging *messaging.Service
	Capture   *streamcapture.Service
	Health    *health.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServiceContainer builds the cores from configuration. Bad detection or
// classifier settings are fatal; optional integrations only log a warning.
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	fallback, err := models.ParseCategory(cfg.DefaultCategory)
	if err != nil {
		return nil, fmt.Errorf("CLASSIFIER_DEFAULT_CATEGORY: %w", err)
	}
	classifierSvc, err := classifier.NewDefaultService(fallback)
	if err != nil {
		return nil, err
	}

	settings, err := annotator.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	annotatorSvc, err := annotator.NewService(settings)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	publisherSvc, err := publisher.NewService(cfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	sc := &ServiceContainer{
		Config:     cfg,
		Metrics:    m,
		Classifier: classifierSvc,
		Annotator:  annotatorSvc,
		Publisher:  publisherSvc,
	}

	var pub models.MessagePublisher
	if cfg.NatsEnabled {
		natsSvc, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, events disabled")
		} else {
			sc.Messaging = natsSvc
			pub = natsSvc
		}
	}
	sc.Events = messaging.NewEvents(pub, cfg.ClassifySubject, cfg.DetectSubject)
	sc.Processor = frameprocessing.NewFrameProcessor(annotatorSvc, publisherSvc, sc.Events, m)

	if cfg.CameraSource != "" {
		sc.Capture = streamcapture.NewService(cfg, sc.Processor)
	}

	if cfg.GRPCPort > 0 {
		h := health.NewService()
		if err := h.Listen(cfg.GRPCPort); err != nil {
			log.Warn().Err(err).Msg("gRPC health server disabled")
		} else {
			sc.Health = h
		}
	}

	return sc, nil
}

// Classify runs the classifier and records the result.
func (sc *ServiceContainer) Classify(text string) models.Classification {
	result := sc.Classifier.ClassifyDetailed(text)
	sc.Metrics.ObserveClassification(result)
	sc.Events.Classification(result)
	return result
}

// Start launches background loops. They stop when Shutdown is called.
func (sc *ServiceContainer) Start(ctx context.Context) {
	ctx, sc.cancel = context.WithCancel(ctx)

	if sc.Capture != nil {
		sc.wg.Add(1)
		go func() {
			defer sc.wg.Done()
			if err := sc.Capture.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Camera capture stopped")
			}
		}()
	}

	if sc.Health != nil {
		sc.wg.Add(1)
		go func() {
			defer sc.wg.Done()
			if err := sc.Health.Serve(); err != nil {
				log.Error().Err(err).Msg("gRPC health server stopped")
			}
		}()
	}
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.cancel != nil {
		sc.cancel()
	}

	var errs []error
	if sc.Health != nil {
		// Let probes fail while the rest drains.
		sc.Health.SetServing(health.ServiceClassifier, false)
		sc.Health.SetServing(health.ServiceAnnotator, false)
		if err := sc.Health.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("health: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		sc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("background loops: %w", ctx.Err()))
	}

	if err := sc.Publisher.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("publisher: %w", err))
	}
	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("messaging: %w", err))
		}
	}

	return errors.Join(errs...)
}
