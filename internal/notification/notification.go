package notification

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "strconv"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

const (
    // KindSuccess is a confirmation shown briefly to the worker.
    KindSuccess = "success"
    // KindError is a failure shown a little longer.
    KindError = "error"

    flashPrefix = "flash:v1:"
)

// Message describes a notification payload.
type Message struct {
    Kind   string `json:"kind"`
    UserID int64  `json:"user_id"`
    Text   string `json:"text"`
}

// Notifier delivers notifications to the worker.
type Notifier interface {
    Send(ctx context.Context, message Message) error
}

// Flashes stores the latest message per worker for the client to pick up.
type Flashes interface {
    Notifier
    Pop(ctx context.Context, userID int64) (Message, bool, error)
}

// TTLs controls how long each kind of message stays visible.
type TTLs struct {
    Success time.Duration
    Error   time.Duration
}

func (t TTLs) forKind(kind string) time.Duration {
    if kind == KindError {
        if t.Error > 0 {
            return t.Error
        }
        return 5 * time.Second
    }
    if t.Success > 0 {
        return t.Success
    }
    return 3 * time.Second
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
    logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
    return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
    if n == nil || n.logger == nil {
        return nil
    }
    n.logger.Info("notification", "kind", message.Kind, "user_id", message.UserID, "text", message.Text)
    return nil
}

// RedisFlashes keeps one flash message per worker in Redis with a per-kind TTL.
type RedisFlashes struct {
    client *redis.Client
    ttls   TTLs
    log    *LoggerNotifier
}

// NewRedisFlashes builds a Redis-backed flash store.
func NewRedisFlashes(client *redis.Client, ttls TTLs, logger *slog.Logger) *RedisFlashes {
    return &RedisFlashes{client: client, ttls: ttls, log: NewLoggerNotifier(logger)}
}

// Send replaces the worker's current flash message.
func (f *RedisFlashes) Send(ctx context.Context, message Message) error {
    _ = f.log.Send(ctx, message)
    payload, err := json.Marshal(message)
    if err != nil {
        return fmt.Errorf("encode flash: %w", err)
    }
    return f.client.Set(ctx, flashKey(message.UserID), payload, f.ttls.forKind(message.Kind)).Err()
}

// Pop returns and removes the worker's flash message if it has not expired.
func (f *RedisFlashes) Pop(ctx context.Context, userID int64) (Message, bool, error) {
    raw, err := f.client.GetDel(ctx, flashKey(userID)).Bytes()
    if errors.Is(err, redis.Nil) {
        return Message{}, false, nil
    }
    if err != nil {
        return Message{}, false, fmt.Errorf("load flash: %w", err)
    }
    var msg Message
    if err := json.Unmarshal(raw, &msg); err != nil {
        return Message{}, false, fmt.Errorf("decode flash: %w", err)
    }
    return msg, true, nil
}

type memoryFlash struct {
    msg     Message
    expires time.Time
}

// MemoryFlashes is the in-process flash store used without Redis.
type MemoryFlashes struct {
    mu    sync.Mutex
    items map[int64]memoryFlash
    ttls  TTLs
    log   *LoggerNotifier
    now   func() time.Time
}

// NewMemoryFlashes builds an in-memory flash store.
func NewMemoryFlashes(ttls TTLs, logger *slog.Logger) *MemoryFlashes {
    return &MemoryFlashes{items: make(map[int64]memoryFlash), ttls: ttls, log: NewLoggerNotifier(logger), now: time.Now}
}

// Send replaces the worker's current flash message.
func (f *MemoryFlashes) Send(ctx context.Context, message Message) error {
    _ = f.log.Send(ctx, message)
    f.mu.Lock()
    defer f.mu.Unlock()
    f.items[message.UserID] = memoryFlash{msg: message, expires: f.now().Add(f.ttls.forKind(message.Kind))}
    return nil
}

// Pop returns and removes the worker's flash message if it has not expired.
func (f *MemoryFlashes) Pop(_ context.Context, userID int64) (Message, bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    item, ok := f.items[userID]
    delete(f.items, userID)
    if !ok || !f.now().Before(item.expires) {
        return Message{}, false, nil
    }
    return item.msg, true, nil
}

func flashKey(userID int64) string {
    return flashPrefix + strconv.FormatInt(userID, 10)
}
