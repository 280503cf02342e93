package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var _ ports.Locker = (*RedisLocker)(nil)

const (
	keyPrefix    = "stock-ledger:lock:"
	pollInterval = 10 * time.Millisecond
)

// releaseScript borra la clave solo si el token sigue siendo el nuestro.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker lock distribuido por clave (SET NX PX con token propio).
// El TTL acota cuánto retiene la clave una réplica que murió con el lock tomado.
type RedisLocker struct {
	client  redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
	log     *logger.Logger
}

// NewRedisClient abre el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisLocker crea el locker. ttl vence claves huérfanas; timeout es la espera máxima.
func NewRedisLocker(client redis.UniversalClient, ttl, timeout time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, timeout: timeout, log: log.Component("redis_locker")}
}

// Lock adquiere las claves en orden. Si vence la espera devuelve domain.ErrConflict.
func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = ports.SortedKeys(keys)
	token := uuid.New().String()
	deadline := time.Now().Add(l.timeout)

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := l.acquire(ctx, keyPrefix+k, token, deadline); err != nil {
			l.release(held, token)
			return nil, err
		}
		held = append(held, keyPrefix+k)
	}
	return func() { l.release(held, token) }, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string, deadline time.Time) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return domain.ErrConflict
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(keys []string, token string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		err := releaseScript.Run(ctx, l.client, []string{keys[i]}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.log.Warn().Err(err).Str("key", keys[i]).Msg("no se pudo liberar el lock; vencerá por TTL")
		}
	}
}
