package cart

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-mall-checkout.git/internal/redisx"
)

// Store keeps authenticated carts in redis: a per-user hash sku_id -> quantity
// plus a per-user set of selected sku_ids. All mutations are server-side atomic
// primitives (HINCRBY / SADD / SREM), so two tabs of the same user never race a
// read-modify-write.
type Store struct{ RDB *redis.Client }

func cartKey(userID int64) string     { return fmt.Sprintf(redisx.KeyCart, userID) }
func selectedKey(userID int64) string { return fmt.Sprintf(redisx.KeyCartSelected, userID) }

func field(skuID int64) string { return strconv.FormatInt(skuID, 10) }

// Increment adds delta to a line's quantity, creating the line if absent. A
// quantity that drops to zero or below deletes the line and its selection mark.
func (s *Store) Increment(ctx context.Context, userID, skuID int64, delta int, selected bool) error {
	n, err := s.RDB.HIncrBy(ctx, cartKey(userID), field(skuID), int64(delta)).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return s.Remove(ctx, userID, skuID)
	}
	if selected {
		return s.RDB.SAdd(ctx, selectedKey(userID), skuID).Err()
	}
	return nil
}

// Set overwrites a line's quantity and selection.
func (s *Store) Set(ctx context.Context, userID, skuID int64, qty int, selected bool) error {
	if qty <= 0 {
		return s.Remove(ctx, userID, skuID)
	}
	pipe := s.RDB.Pipeline()
	pipe.HSet(ctx, cartKey(userID), field(skuID), qty)
	if selected {
		pipe.SAdd(ctx, selectedKey(userID), skuID)
	} else {
		pipe.SRem(ctx, selectedKey(userID), skuID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SelectAll marks or unmarks every line currently in the cart.
func (s *Store) SelectAll(ctx context.Context, userID int64, selected bool) error {
	if !selected {
		return s.RDB.Del(ctx, selectedKey(userID)).Err()
	}
	fields, err := s.RDB.HKeys(ctx, cartKey(userID)).Result()
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	members := make([]any, 0, len(fields))
	for _, f := range fields {
		members = append(members, f)
	}
	return s.RDB.SAdd(ctx, selectedKey(userID), members...).Err()
}

func (s *Store) ReadAll(ctx context.Context, userID int64) (Mapping, error) {
	counts, err := s.RDB.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	selected, err := s.RDB.SMembers(ctx, selectedKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sel := make(map[string]bool, len(selected))
	for _, m := range selected {
		sel[m] = true
	}

	out := Mapping{}
	for f, v := range counts {
		skuID, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(v)
		if err != nil || qty <= 0 {
			continue
		}
		out[skuID] = Line{Qty: qty, Selected: sel[f]}
	}
	return out, nil
}

// Selected returns only the selected lines, sku_id -> quantity. This is the
// settlement and commit input.
func (s *Store) Selected(ctx context.Context, userID int64) (map[int64]int, error) {
	all, err := s.ReadAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := map[int64]int{}
	for skuID, l := range all {
		if l.Selected {
			out[skuID] = l.Qty
		}
	}
	return out, nil
}

func (s *Store) Remove(ctx context.Context, userID, skuID int64) error {
	pipe := s.RDB.Pipeline()
	pipe.HDel(ctx, cartKey(userID), field(skuID))
	pipe.SRem(ctx, selectedKey(userID), skuID)
	_, err := pipe.Exec(ctx)
	return err
}

// Purge removes committed lines and drops the selection set in one pipeline.
// Runs after a successful order commit; best effort, the order stands either way.
func (s *Store) Purge(ctx context.Context, userID int64, skuIDs []int64) error {
	if len(skuIDs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(skuIDs))
	for _, id := range skuIDs {
		fields = append(fields, field(id))
	}
	pipe := s.RDB.Pipeline()
	pipe.HDel(ctx, cartKey(userID), fields...)
	pipe.Del(ctx, selectedKey(userID))
	_, err := pipe.Exec(ctx)
	return err
}

// Merge folds a decoded anonymous cart into the authenticated one at login:
// quantities summed, selection OR-ed. The caller clears the client token after.
func (s *Store) Merge(ctx context.Context, userID int64, anon Mapping) error {
	if len(anon) == 0 {
		return nil
	}
	pipe := s.RDB.Pipeline()
	for skuID, l := range anon {
		pipe.HIncrBy(ctx, cartKey(userID), field(skuID), int64(l.Qty))
		if l.Selected {
			pipe.SAdd(ctx, selectedKey(userID), skuID)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
