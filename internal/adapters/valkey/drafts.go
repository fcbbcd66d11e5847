package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/valkey-io/valkey-go"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

const draftKeyPrefix = "fieldkit:draft:"

// DraftStore implements ports.DraftStore on top of the cache. Each save
// refreshes the TTL, so idle drafts expire.
type DraftStore struct {
	cache      *Cache
	ttlSeconds int
}

// NewDraftStore creates a DraftStore. ttlSeconds <= 0 means 24h.
func NewDraftStore(cache *Cache, ttlSeconds int) *DraftStore {
	if ttlSeconds <= 0 {
		ttlSeconds = 24 * 60 * 60
	}
	return &DraftStore{cache: cache, ttlSeconds: ttlSeconds}
}

// Get loads a draft.
func (s *DraftStore) Get(ctx context.Context, id string) (*domain.Draft, error) {
	data, err := s.cache.Get(ctx, draftKeyPrefix+id)
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

// saveDraftScript writes ARGV[2] with a TTL of ARGV[3] seconds when the
// stored draft's version equals ARGV[1]. Returns 1 on success, 0 on a version
// mismatch and -1 when a non-new draft is missing.
var saveDraftScript = valkey.NewLuaScript(`
local cur = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[1])
if cur then
	local stored = cjson.decode(cur).version or 0
	if tonumber(stored) ~= expected then
		return 0
	end
elseif expected ~= 0 then
	return -1
end
redis.call('SET', KEYS[1], ARGV[2], 'EX', ARGV[3])
return 1
`)

// Save stores a draft if nobody saved it since it was loaded, and bumps its
// version.
func (s *DraftStore) Save(ctx context.Context, d *domain.Draft) error {
	next := *d
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	res, err := saveDraftScript.Exec(ctx, s.cache.client,
		[]string{draftKeyPrefix + d.ID},
		[]string{strconv.FormatInt(d.Version, 10), string(data), strconv.Itoa(s.ttlSeconds)},
	).AsInt64()
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	switch res {
	case 0:
		return domain.ErrDraftConflict
	case -1:
		return domain.ErrNotFound
	}
	d.Version = next.Version
	return nil
}

// Delete removes a draft.
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, draftKeyPrefix+id)
}
