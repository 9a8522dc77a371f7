package server

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"

	"replybot/internal/biz"
	"replybot/internal/conf"
)

var _ transport.Server = (*RuleSyncServer)(nil)

// RuleListener delivers rule change announcements from other replicas.
type RuleListener interface {
	Listen(ctx context.Context, onChange func(ctx context.Context)) error
}

const listenRetryDelay = 5 * time.Second

// RuleSyncServer loads the rule cache on start and keeps it in step with
// the other replicas: on every announcement and, optionally, on a timer.
type RuleSyncServer struct {
	store    *biz.RuleStore
	listener RuleListener
	interval time.Duration
	log      *log.Helper

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRuleSyncServer creates a RuleSyncServer. listener may be nil.
func NewRuleSyncServer(c *conf.Reply, store *biz.RuleStore, listener RuleListener, logger log.Logger) *RuleSyncServer {
	return &RuleSyncServer{
		store:    store,
		listener: listener,
		interval: c.ResyncInterval.AsDuration(),
		log:      log.NewHelper(logger),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start loads the rules, then blocks until Stop.
func (s *RuleSyncServer) Start(ctx context.Context) error {
	defer close(s.done)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.store.Refresh(ctx); err != nil {
		return err
	}

	if s.listener != nil {
		go s.listen(ctx)
	}

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-tick:
			s.refresh(ctx)
		}
	}
}

func (s *RuleSyncServer) listen(ctx context.Context) {
	for {
		err := s.listener.Listen(ctx, s.refresh)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warnf("rule change subscription failed, retrying in %s: %v", listenRetryDelay, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetryDelay):
		}
		// announcements may have been missed while disconnected
		s.refresh(ctx)
	}
}

func (s *RuleSyncServer) refresh(ctx context.Context) {
	if err := s.store.Refresh(ctx); err != nil {
		s.log.Errorf("failed to refresh rules: %v", err)
	}
}

// Stop ends Start and waits for it to return. Stop must only be called after Start.
func (s *RuleSyncServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
