package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisQueue 通知队列的Redis实现
//
// 核心服务只负责入队（如组织入驻后的账号凭证通知），
// 投递由独立的通知消费端完成，邮件发送失败不影响业务事务。
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NotificationMessage 队列中的通知消息
type NotificationMessage struct {
	NotifyID   string                 `json:"notify_id"`
	NotifyType string                 `json:"notify_type"` // 通知类型，如 "org_onboarding"
	Recipient  string                 `json:"recipient"`   // 收件人邮箱
	Params     map[string]interface{} `json:"params"`
	Created    int64                  `json:"created"`
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewRedisQueue 创建Redis队列实例
func NewRedisQueue(config *Config) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "conductor:notify"
	}

	return &RedisQueue{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *RedisQueue) Ping() error {
	ctx := context.Background()
	return q.client.Ping(ctx).Err()
}

// Enqueue 将通知加入队列
func (q *RedisQueue) Enqueue(notifyID, notifyType, recipient string, params map[string]interface{}) error {
	ctx := context.Background()

	message := NotificationMessage{
		NotifyID:   notifyID,
		NotifyType: notifyType,
		Recipient:  recipient,
		Params:     params,
		Created:    time.Now().Unix(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化通知消息失败: %v", err)
	}

	// 加入队列（左侧入队）
	if err := q.client.LPush(ctx, q.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("通知入队失败: %v", err)
	}

	return nil
}

// Dequeue 从队列取出一条通知（阻塞式，供消费端使用）
func (q *RedisQueue) Dequeue(timeout time.Duration) (*NotificationMessage, error) {
	ctx := context.Background()

	result, err := q.client.BRPop(ctx, timeout, q.queueKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("通知出队失败: %v", err)
	}

	// BRPop返回 [key, value]
	if len(result) < 2 {
		return nil, fmt.Errorf("通知消息格式错误")
	}

	var message NotificationMessage
	if err := json.Unmarshal([]byte(result[1]), &message); err != nil {
		return nil, fmt.Errorf("解析通知消息失败: %v", err)
	}

	return &message, nil
}

// Length 当前队列长度
func (q *RedisQueue) Length() (int64, error) {
	ctx := context.Background()
	return q.client.LLen(ctx, q.queueKey()).Result()
}

func (q *RedisQueue) queueKey() string {
	return q.prefix + ":pending"
}
