// Package nats carries classification jobs between the API process and
// the worker. A job is the skin check id, published on a single subject
// and consumed by a queue group so multiple workers share the load.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dermadoc/backend/internal/infrastructure/resilience"
)

const (
	defaultSubject = "skinchecks.submitted"
	queueGroup     = "classifiers"
	// pendingBuffer bounds how many undispatched jobs one worker holds.
	pendingBuffer = 64
)

type Queue struct {
	conn        *nats.Conn
	subject     string
	concurrency int
	executor    *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// Concurrency is the number of handler goroutines one subscriber
	// runs. Zero means serial handling.
	Concurrency        int
	ResilienceExecutor *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	if subject == "" {
		subject = defaultSubject
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	conn, err := nats.Connect(
		url,
		nats.Name("dermadoc-backend"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:        conn,
		subject:     subject,
		concurrency: concurrency,
		executor:    options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishCheckSubmitted(ctx context.Context, checkID string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(checkID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeCheckSubmitted consumes jobs with a fixed pool of handler
// goroutines and blocks until ctx is cancelled. Slow handlers apply
// backpressure through the bounded channel subscription instead of
// spawning unbounded work.
func (q *Queue) SubscribeCheckSubmitted(ctx context.Context, handler func(context.Context, string) error) error {
	pending := make(chan *nats.Msg, pendingBuffer)
	sub, err := q.conn.ChanQueueSubscribe(q.subject, queueGroup, pending)
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-pending:
					if !ok {
						return
					}
					checkID := string(msg.Data)
					if err := handler(ctx, checkID); err != nil {
						slog.Error("job handler failed", "check_id", checkID, "error", err)
					}
				}
			}
		}()
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		slog.Warn("nats unsubscribe", "error", err)
	}
	close(pending)
	wg.Wait()
	return nil
}
