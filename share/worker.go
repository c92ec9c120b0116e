// Package share implements clause sharing between solver instances through
// Redis.
//
// Each solver instance publishes the clauses it learns on the channel
// "<id>.out". A Worker listens to that channel, filters and canonicalizes
// the clauses it receives, and adds them to the Redis set "clauses", read
// by the other instances.
package share

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/crillab/gophersmt/config"
)

// ClauseSet is the Redis set shared clauses are added to.
const ClauseSet = "clauses"

// A Worker moves the clauses published by one solver instance to the
// shared clause set.
type Worker struct {
	cfg   config.Share
	log   logrus.FieldLogger
	pub   *redis.Client
	sub   *redis.Client
	ready chan struct{}
}

func connect(ctx context.Context, cfg config.Share) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "PING to %s failed", cfg.Addr)
	}
	return client, nil
}

// NewWorker connects to Redis and clears the channel's key. It returns an
// error if the server cannot be reached.
func NewWorker(ctx context.Context, cfg config.Share, log logrus.FieldLogger) (*Worker, error) {
	pub, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sub, err := connect(ctx, cfg)
	if err != nil {
		pub.Close()
		return nil, err
	}
	if err := pub.Del(ctx, cfg.Channel).Err(); err != nil {
		pub.Close()
		sub.Close()
		return nil, errors.Wrapf(err, "cannot clear %s", cfg.Channel)
	}
	return &Worker{
		cfg:   cfg,
		log:   log.WithField(ChannelLabel, cfg.Channel),
		pub:   pub,
		sub:   sub,
		ready: make(chan struct{}),
	}, nil
}

// Close closes both connections of the worker.
func (w *Worker) Close() error {
	err := w.pub.Close()
	if err2 := w.sub.Close(); err == nil {
		err = err2
	}
	return err
}

// Out is the channel the solver instance publishes its clauses on.
func (w *Worker) Out() string {
	return w.cfg.Channel + ".out"
}

// Ready is closed once the worker listens to its channel.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

// Run listens to the worker's channel until ctx is cancelled. Cancellation
// is not an error: Run then returns nil.
// It panics if a message cannot be loaded.
func (w *Worker) Run(ctx context.Context) error {
	ps := w.sub.Subscribe(ctx, w.Out())
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrapf(err, "cannot subscribe to %s", w.Out())
	}
	close(w.ready)
	w.log.Debug("listening")
	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.log.WithField("from", msg.Channel).Debug("message received")
			var m Message
			if err := m.Load([]byte(msg.Payload)); err != nil {
				panic(errors.Wrapf(err, "invalid message on %s", msg.Channel))
			}
			if err := w.handle(ctx, m.Payload); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// handle adds the acceptable clauses of payload to the shared set.
func (w *Worker) handle(ctx context.Context, payload []byte) error {
	channel := w.cfg.Channel
	for o := 0; o < len(payload); {
		c, next, err := DecodeClause(payload, o)
		o = next
		if err != nil {
			clausesDiscarded.WithLabelValues(channel, reasonMalformed).Inc()
			continue
		}
		clausesReceived.WithLabelValues(channel).Inc()
		switch {
		case c.Len() == 0:
			clausesDiscarded.WithLabelValues(channel, reasonEmpty).Inc()
			continue
		case c.Len() > w.cfg.MaxClauseSize:
			clausesDiscarded.WithLabelValues(channel, reasonTooLong).Inc()
			continue
		}
		c.Sort()
		if err := w.pub.SAdd(ctx, ClauseSet, AppendClause(nil, c)).Err(); err != nil {
			return errors.Wrap(err, "cannot share clause")
		}
	}
	return nil
}

// Publish sends clauses on the worker's channel, as the solver instance
// would. headers describe the sender.
func (w *Worker) Publish(ctx context.Context, headers map[string]string, clauses []*Clause) error {
	m := Message{Header: headers, Payload: EncodeClauses(clauses)}
	if err := w.pub.Publish(ctx, w.Out(), m.Dump()).Err(); err != nil {
		return errors.Wrapf(err, "cannot publish on %s", w.Out())
	}
	clausesPublished.WithLabelValues(w.cfg.Channel).Add(float64(len(clauses)))
	return nil
}
