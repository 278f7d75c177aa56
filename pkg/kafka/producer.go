package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer writes JSON decision payloads to Kafka.
type Producer struct {
	writer *kafka.Writer
	comp   string
}

// NewProducer validates cfg and opens a writer. Brokers are dialled lazily on first write.
func NewProducer(cfg Config) (*Producer, error) {
	cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	initProducerMetricsOnce()
	return &Producer{writer: cfg.writer(), comp: cfg.Compression}, nil
}

// Publish encodes value as JSON unless it is already bytes or a string.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	var payload []byte
	switch v := value.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("kafka: encode %s payload: %w", topic, err)
		}
		payload = b
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: payload, Time: start})
	observeProducerMetrics(topic, p.comp, int64(len(payload)), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka: write %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending async writes.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

type producerMetrics struct {
	published *prometheus.CounterVec
	bytes     *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metrics     *producerMetrics
)

func initProducerMetricsOnce() {
	metricsOnce.Do(func() {
		metrics = &producerMetrics{
			published: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tradepulse",
				Subsystem: "kafka",
				Name:      "published_total",
				Help:      "Decision messages written, by result.",
			}, []string{"topic", "result"}),
			bytes: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tradepulse",
				Subsystem: "kafka",
				Name:      "published_bytes_total",
				Help:      "Payload bytes written before compression.",
			}, []string{"topic", "compression"}),
			latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tradepulse",
				Subsystem: "kafka",
				Name:      "publish_seconds",
				Help:      "WriteMessages latency.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			}, []string{"topic"}),
		}
	})
}

func observeProducerMetrics(topic, comp string, n int64, dur time.Duration, err error) {
	if metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.published.WithLabelValues(topic, result).Inc()
	metrics.latency.WithLabelValues(topic).Observe(dur.Seconds())
	if err == nil {
		metrics.bytes.WithLabelValues(topic, comp).Add(float64(n))
	}
}
