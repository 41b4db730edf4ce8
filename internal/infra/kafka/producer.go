package kafka

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Producer interface defines the methods that a Kafka producer must implement
type Producer interface {
	// Produce sends messages to Kafka
	Produce(ctx context.Context, msgs ...kafka.Message) error
	// Close closes the producer
	Close() error
}

// kafka.Writer 的子集, 測試時可替換
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaProducer implements the Producer interface
type kafkaProducer struct {
	writer messageWriter
	cfg    *Config
	closed atomic.Bool
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg *Config, logger *zerolog.Logger) (Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Async:        false,

		// 重試由 Produce 處理
		MaxAttempts: 1,

		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},

		// 錯誤處理
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			if logger != nil {
				logger.Error().Str("component", "kafka").Msgf("kafka producer error: "+msg, args...)
			}
		}),

		// 壓縮設置
		Compression: kafka.Snappy,
	}

	return newProducerWithWriter(writer, cfg), nil
}

func newProducerWithWriter(w messageWriter, cfg *Config) *kafkaProducer {
	return &kafkaProducer{
		writer: w,
		cfg:    cfg,
	}
}

// Produce implements the Producer interface
// 同步發送消息，會block到所有消息都寫入
func (p *kafkaProducer) Produce(ctx context.Context, msgs ...kafka.Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	if len(msgs) == 0 {
		return nil
	}

	var err error
	for attempt := 0; attempt <= p.cfg.RetryAttempts; attempt++ {
		// 檢查外部 context 是否已經取消
		if ctx.Err() != nil {
			return NewKafkaError("Produce", p.cfg.Topic, ctx.Err())
		}

		err = p.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			return nil
		}

		if !IsTemporary(err) || attempt == p.cfg.RetryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return NewKafkaError("Produce", p.cfg.Topic, ctx.Err())
		case <-time.After(p.cfg.RetryDelay * time.Duration(attempt+1)):
		}
	}

	return NewKafkaError("Produce", p.cfg.Topic, err)
}

// Close implements the Producer interface
func (p *kafkaProducer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
