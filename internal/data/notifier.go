package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"replybot/internal/conf"
	pkgredis "replybot/internal/pkg/redis"
)

const defaultRefreshChannel = "replybot:rules:changed"

// InstanceID identifies this process among its replicas.
type InstanceID string

// NewInstanceID returns a fresh random instance id.
func NewInstanceID() InstanceID {
	return InstanceID(uuid.NewString())
}

// RuleNotifier announces rule changes over redis pub/sub and listens for
// the announcements of other replicas.
type RuleNotifier struct {
	cache    pkgredis.Cache
	channel  string
	instance InstanceID
	log      *log.Helper
}

// NewRuleNotifier creates a RuleNotifier on reply.refresh_channel.
func NewRuleNotifier(cache pkgredis.Cache, c *conf.Reply, id InstanceID, logger log.Logger) *RuleNotifier {
	channel := c.RefreshChannel
	if channel == "" {
		channel = defaultRefreshChannel
	}
	return &RuleNotifier{
		cache:    cache,
		channel:  channel,
		instance: id,
		log:      log.NewHelper(logger),
	}
}

// NotifyRulesChanged implements biz.RuleChangeNotifier.
func (n *RuleNotifier) NotifyRulesChanged(ctx context.Context) error {
	return n.cache.Publish(ctx, n.channel, string(n.instance))
}

// Listen calls onChange for every announcement published by another
// instance, until ctx is done or the subscription closes.
func (n *RuleNotifier) Listen(ctx context.Context, onChange func(ctx context.Context)) error {
	sub := n.cache.Subscribe(ctx, n.channel)
	defer sub.Close()

	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	n.log.Infof("listening for rule changes on %s", n.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == string(n.instance) {
				continue
			}
			n.log.Debugf("rule change announced by %s", msg.Payload)
			onChange(ctx)
		}
	}
}
