package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/pos-invoice/internal/core/domain"
	"github.com/rl1809/pos-invoice/internal/port"
)

const (
	productKeyPrefix  = "product:"
	productsSetKey    = "products"
	invoicesListKey   = "invoices"
	idempotencyKeyTTL = 24 * time.Hour
	lockRetryInterval = 10 * time.Millisecond
)

var errLockLost = errors.New("lock expired before release")

var updateStockScript = redis.NewScript(`
local key = KEYS[1]

local current = redis.call('HGET', key, 'stock')
if not current then
	return -1
end

if tonumber(current) ~= tonumber(ARGV[1]) then
	return 0
end

redis.call('HSET', key, 'stock', ARGV[2])
return 1
`)

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) ReadAll(ctx context.Context) ([]domain.Product, error) {
	names, err := r.client.SMembers(ctx, productsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	sort.Strings(names)

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.HGetAll(ctx, productKeyPrefix+name)
	}
	if len(names) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("read products: %w", err)
		}
	}

	products := make([]domain.Product, 0, len(names))
	for i, name := range names {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		p, err := parseProductHash(name, fields)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *RedisAdapter) UpdateStock(ctx context.Context, update domain.StockUpdate) error {
	key := productKeyPrefix + update.ProductName

	result, err := updateStockScript.Run(ctx, r.client, []string{key}, update.OldStock, update.NewStock).Int()
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	switch result {
	case -1:
		return domain.ErrUnknownProduct
	case 0:
		return domain.ErrStockConflict
	}
	return nil
}

func (r *RedisAdapter) UpsertProduct(ctx context.Context, product domain.Product) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, productKeyPrefix+product.Name,
			"price", product.Price.String(),
			"stock", product.Stock,
		)
		pipe.SAdd(ctx, productsSetKey, product.Name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Append(ctx context.Context, invoice domain.Invoice) error {
	data, err := json.Marshal(newInvoiceRecord(invoice))
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}
	if err := r.client.RPush(ctx, invoicesListKey, data).Err(); err != nil {
		return fmt.Errorf("append invoice: %w", err)
	}
	return nil
}

// Invoices returns the stored invoices in append order.
func (r *RedisAdapter) Invoices(ctx context.Context) ([]domain.Invoice, error) {
	raw, err := r.client.LRange(ctx, invoicesListKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read invoices: %w", err)
	}

	invoices := make([]domain.Invoice, 0, len(raw))
	for _, item := range raw {
		var rec invoiceRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal invoice: %w", err)
		}
		invoices = append(invoices, rec.toDomain())
	}
	return invoices, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// Acquire takes a lock shared by every process pointed at the same Redis. The
// lock expires after ttl if the holder never releases it.
func (r *RedisAdapter) Acquire(ctx context.Context, key string, ttl time.Duration) (port.ReleaseFunc, error) {
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	return func(ctx context.Context) error {
		released, err := releaseLockScript.Run(ctx, r.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		if released == 0 {
			return errLockLost
		}
		return nil
	}, nil
}

func parseProductHash(name string, fields map[string]string) (domain.Product, error) {
	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %q: parse price: %w", name, err)
	}
	stock, err := strconv.Atoi(fields["stock"])
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %q: parse stock: %w", name, err)
	}
	return domain.Product{Name: name, Price: price, Stock: stock}, nil
}
