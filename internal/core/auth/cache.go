package auth

import (
	"time"

	"github.com/hoo-game/hoo-server/internal/core/data"
	gocache "github.com/patrickmn/go-cache"
)

const accountTTL = 5 * time.Minute

// accountCache holds recently read accounts keyed by login key. Entries are
// copied in and out so callers never share an Account with the cache.
type accountCache struct {
	cacheInstance *gocache.Cache
}

func newAccountCache() *accountCache {
	return &accountCache{cacheInstance: gocache.New(accountTTL, time.Minute)}
}

func (c *accountCache) put(account *data.Account) {
	c.cacheInstance.SetDefault(account.LoginKey, *account)
}

func (c *accountCache) get(login string) (*data.Account, bool) {
	v, ok := c.cacheInstance.Get(data.LoginKey(login))
	if !ok {
		return nil, false
	}
	account := v.(data.Account)
	return &account, true
}

func (c *accountCache) invalidate(login string) {
	c.cacheInstance.Delete(data.LoginKey(login))
}

func (c *accountCache) flush() {
	c.cacheInstance.Flush()
}
