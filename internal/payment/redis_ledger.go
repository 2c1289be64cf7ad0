package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
)

// TransferLogKey lists every applied leg as from>to:amount:memo.
const TransferLogKey = "payment_transfers"

const (
	balanceKeyPrefix = "balance:"
	insufficientTag  = "INSUFFICIENT_FUNDS"
)

// transferScript applies the legs in order and undoes the applied ones when a
// debit would go negative, so a batch is applied entirely or not at all.
// Balances stay Redis integers; the only Lua-side number is the sign of a
// DECRBY reply. KEYS[1] is the transfer log followed by from/to pairs, ARGV
// the amount and memo of each leg.
var transferScript = redis.NewScript(`
local n = (#KEYS - 1) / 2
for i = 1, n do
  local from, to, amount = KEYS[2*i], KEYS[2*i+1], ARGV[2*i-1]
  if redis.call('DECRBY', from, amount) < 0 then
    redis.call('INCRBY', from, amount)
    for j = i - 1, 1, -1 do
      redis.call('INCRBY', KEYS[2*j], ARGV[2*j-1])
      redis.call('DECRBY', KEYS[2*j+1], ARGV[2*j-1])
    end
    return redis.error_reply('INSUFFICIENT_FUNDS ' .. from)
  end
  redis.call('INCRBY', to, amount)
end
for i = 1, n do
  redis.call('RPUSH', KEYS[1], KEYS[2*i] .. '>' .. KEYS[2*i+1] .. ':' .. ARGV[2*i-1] .. ':' .. ARGV[2*i])
end
return n
`)

// RedisLedger keeps balances as integer minor units under balance:<address>.
// It cannot join the store transaction; settlement reverses its legs when
// the store commit fails.
type RedisLedger struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewRedisLedger(client *redis.Client, log *logger.Logger) *RedisLedger {
	return &RedisLedger{Client: client, Logger: log}
}

func balanceKey(address string) string {
	return balanceKeyPrefix + models.NormalizeAddress(address)
}

func (r *RedisLedger) Transactional() bool { return false }

func (r *RedisLedger) Transfer(ctx context.Context, from, to string, amount models.Amount) error {
	return r.TransferBatch(ctx, []models.TransferLeg{{From: from, To: to, Amount: amount}})
}

func (r *RedisLedger) TransferBatch(ctx context.Context, legs []models.TransferLeg) error {
	legs = nonZero(legs)
	if len(legs) == 0 {
		return nil
	}

	keys := make([]string, 0, 2*len(legs)+1)
	args := make([]interface{}, 0, 2*len(legs))
	keys = append(keys, TransferLogKey)
	for _, leg := range legs {
		if uint64(leg.Amount) > math.MaxInt64 {
			return fmt.Errorf("leg of %s exceeds the ledger range: %w", leg.Amount, models.ErrInvalidPrice)
		}
		keys = append(keys, balanceKey(leg.From), balanceKey(leg.To))
		args = append(args, strconv.FormatUint(uint64(leg.Amount), 10), leg.Memo)
	}

	err := transferScript.Run(ctx, r.Client, keys, args...).Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), insufficientTag) {
			owner := strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(err.Error(), insufficientTag)), balanceKeyPrefix)
			return fmt.Errorf("%s: %w", owner, models.ErrInsufficientFunds)
		}
		r.Logger.Error("REDIS", fmt.Sprintf("Transfer batch failed: %v", err))
		return fmt.Errorf("failed to run transfer batch: %w", err)
	}

	for _, leg := range legs {
		r.Logger.Debug("REDIS", fmt.Sprintf("%s -> %s %s (%s)", leg.From, leg.To, leg.Amount, leg.Memo))
	}
	return nil
}

func (r *RedisLedger) Deposit(ctx context.Context, address string, amount models.Amount) error {
	if models.IsZeroAddress(address) {
		return fmt.Errorf("cannot deposit to zero address: %w", models.ErrInvalidRecipient)
	}
	if uint64(amount) > math.MaxInt64 {
		return fmt.Errorf("deposit of %s exceeds the ledger range: %w", amount, models.ErrInvalidPrice)
	}
	if err := r.Client.IncrBy(ctx, balanceKey(address), int64(amount)).Err(); err != nil {
		return fmt.Errorf("failed to deposit to %s: %w", address, err)
	}
	return nil
}

func (r *RedisLedger) Balance(ctx context.Context, address string) (models.Amount, error) {
	val, err := r.Client.Get(ctx, balanceKey(address)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance of %s: %w", address, err)
	}
	return models.Amount(val), nil
}
