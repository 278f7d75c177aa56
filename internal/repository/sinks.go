package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	xhttp "TradePulse/pkg/http"
	applogger "TradePulse/pkg/logger"
)

// HTTPSink posts the prediction payload to the upstream price API.
type HTTPSink struct {
	client *xhttp.Client
	url    string
}

func NewHTTPSink(baseURL, path string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
		url:    baseURL + path,
	}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Publish(ctx context.Context, r *models.CycleReport) error {
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    s.url,
		Body:   r.Result(),
	}, nil)
	if err != nil {
		return fmt.Errorf("post prediction: %w", err)
	}
	return nil
}

// Publisher is the subset of the Kafka producer used by KafkaSink.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaSink writes the payload to a topic keyed by report id.
type KafkaSink struct {
	p     Publisher
	topic string
}

func NewKafkaSink(p Publisher, topic string) *KafkaSink {
	return &KafkaSink{p: p, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, r *models.CycleReport) error {
	if err := s.p.Publish(ctx, s.topic, []byte(r.ID), r.Result()); err != nil {
		return fmt.Errorf("kafka publish %s: %w", s.topic, err)
	}
	return nil
}

// StoreSink records every published report in a DecisionStore.
type StoreSink struct {
	store domrepo.DecisionStore
}

func NewStoreSink(store domrepo.DecisionStore) *StoreSink { return &StoreSink{store: store} }

func (s *StoreSink) Name() string { return "clickhouse" }

func (s *StoreSink) Publish(ctx context.Context, r *models.CycleReport) error {
	return s.store.StoreDecision(ctx, r)
}

// FanOut publishes to every sink, one at a time. Sink failures are logged
// and joined; a failing sink never blocks the rest.
type FanOut struct {
	sinks   []domrepo.ResultSink
	timeout time.Duration
	l       *applogger.Logger
}

func NewFanOut(l *applogger.Logger, timeout time.Duration, sinks ...domrepo.ResultSink) *FanOut {
	if l == nil {
		l = applogger.Nop()
	}
	return &FanOut{sinks: sinks, timeout: timeout, l: l}
}

func (f *FanOut) Name() string { return "fanout" }

// Add registers another sink.
func (f *FanOut) Add(s domrepo.ResultSink) { f.sinks = append(f.sinks, s) }

// Names lists the registered sinks.
func (f *FanOut) Names() []string {
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.Name())
	}
	return out
}

func (f *FanOut) Publish(ctx context.Context, r *models.CycleReport) error {
	var errs []error
	for _, s := range f.sinks {
		sctx, cancel := ctx, context.CancelFunc(func() {})
		if f.timeout > 0 {
			sctx, cancel = context.WithTimeout(ctx, f.timeout)
		}
		err := s.Publish(sctx, r)
		cancel()
		if err != nil {
			f.l.Warn("sink publish failed",
				applogger.String("stage", "publish"),
				applogger.String("sink", s.Name()),
				applogger.String("id", r.ID),
				applogger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var (
	_ domrepo.ResultSink = (*HTTPSink)(nil)
	_ domrepo.ResultSink = (*KafkaSink)(nil)
	_ domrepo.ResultSink = (*StoreSink)(nil)
	_ domrepo.ResultSink = (*FanOut)(nil)
)
