package services

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tune the photo-access core. Zero values select the defaults.
type Options struct {
	Timeout                 time.Duration
	DeclineCooldown         time.Duration
	AllowUnknownProfileTier bool
	Now                     func() time.Time
}

// Core bundles the components that share one Redis client and clock.
type Core struct {
	Profiles    *ProfileStore
	Connections *ConnectionStore
	Blocks      *BlockList
	Grants      *GrantStore
	Interests   *InterestManager
	Resolver    *PrivacyResolver

	// Now is the clock every component was built with.
	Now func() time.Time
}

// NewCore wires every component to rdb. notifier may be nil.
func NewCore(rdb *redis.Client, notifier Notifier, opts Options) *Core {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStoreTimeout
	}
	if opts.DeclineCooldown == 0 {
		opts.DeclineCooldown = DefaultDeclineCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Core{
		Profiles:    NewProfileStore(rdb, opts.Timeout, opts.Now),
		Connections: NewConnectionStore(rdb, opts.Timeout, opts.Now),
		Grants:      NewGrantStore(rdb, opts.Timeout, opts.Now),
		Now:         opts.Now,
	}
	c.Blocks = NewBlockList(rdb, c.Profiles, opts.Timeout, opts.Now)
	c.Interests = NewInterestManager(rdb, c.Profiles, notifier, opts.DeclineCooldown, opts.Timeout, opts.Now)
	c.Resolver = NewPrivacyResolver(c.Connections, c.Profiles, c.Blocks, c.Grants, opts.AllowUnknownProfileTier, opts.Now)
	return c
}
