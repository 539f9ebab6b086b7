package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Rows are JSON arrays in a Redis list. Positional scripts compare the
// encoded prefix of the row (`["<id>"`) so no JSON decoding happens in Lua.
var (
	redisAppendScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
return redis.call("RPUSH", KEYS[2], ARGV[1])
`)

	redisOverwriteScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local cur = redis.call("LINDEX", KEYS[2], ARGV[1])
if not cur then
  return 0
end
local p = ARGV[2]
if string.sub(cur, 1, #p) ~= p then
  return 0
end
local nxt = string.sub(cur, #p + 1, #p + 1)
if nxt ~= "," and nxt ~= "]" then
  return 0
end
redis.call("LSET", KEYS[2], ARGV[1], ARGV[3])
return 1
`)

	redisDeleteScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local cur = redis.call("LINDEX", KEYS[2], ARGV[1])
if not cur then
  return 0
end
local p = ARGV[2]
if string.sub(cur, 1, #p) ~= p then
  return 0
end
local nxt = string.sub(cur, #p + 1, #p + 1)
if nxt ~= "," and nxt ~= "]" then
  return 0
end
redis.call("LSET", KEYS[2], ARGV[1], ARGV[3])
redis.call("LREM", KEYS[2], 1, ARGV[3])
return 1
`)
)

// RedisGrid stores each sheet as a header key plus a list of JSON-encoded rows.
type RedisGrid struct {
	client *redis.Client
	prefix string
}

// NewRedisGrid connects to Redis. Keys are namespaced under prefix.
func NewRedisGrid(addr, password, prefix string) (*RedisGrid, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis grid addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rentbook:grid"
	}
	return &RedisGrid{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		prefix: prefix,
	}, nil
}

// Close releases the Redis connection pool.
func (g *RedisGrid) Close() error {
	return g.client.Close()
}

func (g *RedisGrid) headerKey(sheet string) string {
	return g.prefix + ":" + sheet + ":header"
}

func (g *RedisGrid) rowsKey(sheet string) string {
	return g.prefix + ":" + sheet + ":rows"
}

// EnsureSheet writes the header row when the sheet does not exist.
func (g *RedisGrid) EnsureSheet(ctx context.Context, sheet string, headers []string) error {
	data, err := json.Marshal(headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	if err := g.client.SetNX(ctx, g.headerKey(sheet), data, 0).Err(); err != nil {
		return fmt.Errorf("redis setnx header: %w", err)
	}
	return nil
}

// ReadRows decodes every row of the sheet.
func (g *RedisGrid) ReadRows(ctx context.Context, sheet string) ([][]any, error) {
	n, err := g.client.Exists(ctx, g.headerKey(sheet)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis exists: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	raw, err := g.client.LRange(ctx, g.rowsKey(sheet), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	rows := make([][]any, 0, len(raw))
	for i, item := range raw {
		var row []any
		if err := json.Unmarshal([]byte(item), &row); err != nil {
			return nil, fmt.Errorf("decode row %d of %s: %w", i, sheet, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRow pushes an encoded row onto the sheet list.
func (g *RedisGrid) AppendRow(ctx context.Context, sheet string, row []any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	res, err := redisAppendScript.Run(ctx, g.client, []string{g.headerKey(sheet), g.rowsKey(sheet)}, data).Int64()
	if err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	if res < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	return nil
}

// OverwriteRow replaces the row at pos when it still holds expectID.
func (g *RedisGrid) OverwriteRow(ctx context.Context, sheet string, pos int, expectID string, row []any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	prefix, err := rowIDPrefix(expectID)
	if err != nil {
		return err
	}
	res, err := redisOverwriteScript.Run(ctx, g.client,
		[]string{g.headerKey(sheet), g.rowsKey(sheet)}, pos, prefix, data).Int64()
	if err != nil {
		return fmt.Errorf("redis overwrite: %w", err)
	}
	return positionalResult(res, sheet)
}

// DeleteRow removes the row at pos when it still holds expectID.
func (g *RedisGrid) DeleteRow(ctx context.Context, sheet string, pos int, expectID string) error {
	prefix, err := rowIDPrefix(expectID)
	if err != nil {
		return err
	}
	tombstone := "__deleted__:" + GenerateID("")
	res, err := redisDeleteScript.Run(ctx, g.client,
		[]string{g.headerKey(sheet), g.rowsKey(sheet)}, pos, prefix, tombstone).Int64()
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return positionalResult(res, sheet)
}

func rowIDPrefix(id string) (string, error) {
	enc, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("encode id: %w", err)
	}
	return "[" + string(enc), nil
}

func positionalResult(res int64, sheet string) error {
	switch {
	case res < 0:
		return fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	case res == 0:
		return ErrRowMoved
	default:
		return nil
	}
}
