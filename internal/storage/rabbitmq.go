package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
)

// EventPublisher 匹配事件发布接口
type EventPublisher interface {
	PublishMatchCompleted(ctx context.Context, event *MatchCompletedEvent) error
	Close() error
}

var _ EventPublisher = (*RabbitMQ)(nil)

// RabbitMQ 消息队列：向下游广播匹配完成事件
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	exchangeMap  map[string]bool
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
}

// NewRabbitMQ 创建RabbitMQ客户端并声明事件交换机
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		cfg:         cfg,
	}
	mq.channelPool = sync.Pool{
		New: func() any {
			ch, chErr := conn.Channel()
			if chErr != nil {
				logger.Error().Err(chErr).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道")
	}
	mq.putChannel(testCh)

	if cfg.MatchEventsExchange != "" {
		if err := mq.EnsureExchange(cfg.MatchEventsExchange, "topic", true); err != nil {
			conn.Close()
			return nil, err
		}
	}

	logger.Info().Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			logger.Error().Err(err).Msg("创建新RabbitMQ通道失败")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange 确保交换机存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("交换机名称不能为空")
	}
	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("声明交换机失败: %w", err)
	}

	r.exchangeMap[exchangeName] = true
	return nil
}

// PublishJSON 以发布确认模式发布JSON消息
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	// 确认模式的通道不回池，用完即关
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("创建发布通道失败: %w", err)
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("开启发布确认失败: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	confirmTimeout := time.Duration(orDefault(r.cfg.ConfirmTimeoutSeconds, 5)) * time.Second
	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("消息被RabbitMQ拒绝")
		}
	case <-time.After(confirmTimeout):
		return fmt.Errorf("等待发布确认超时")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// PublishMatchCompleted 发布匹配完成事件
func (r *RabbitMQ) PublishMatchCompleted(ctx context.Context, event *MatchCompletedEvent) error {
	if r.cfg.MatchEventsExchange == "" {
		return nil
	}
	routingKey := r.cfg.MatchDoneRoutingKey
	if routingKey == "" {
		routingKey = "match.completed"
	}
	if err := r.PublishJSON(ctx, r.cfg.MatchEventsExchange, routingKey, event); err != nil {
		return fmt.Errorf("发布匹配完成事件失败: %w", err)
	}
	logger.Debug().Str("run_id", event.RunID).Int("matches", event.MatchCount).Msg("已发布匹配完成事件")
	return nil
}
