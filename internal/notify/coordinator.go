// Package notify keeps one shared copy of the notification feed and unread
// count per process. Every consumer reads the same cache; fetches are
// deduplicated so a burst of callers produces at most one network call per
// resource.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/events"
	"bazario-admin/internal/observability"

	"golang.org/x/time/rate"
)

const (
	// FreshnessWindow is how long cached data is served without a refetch.
	FreshnessWindow = 5 * time.Minute

	// burstInterval guards against re-render storms: fetches for a resource
	// are suppressed when the previous one started less than this ago, even
	// when forced.
	burstInterval = 2 * time.Second
)

// Backend is the slice of the API the coordinator needs.
type Backend interface {
	List(ctx context.Context) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

// Snapshot is what subscribers receive on every cache write.
type Snapshot struct {
	Notifications []*domain.Notification
	Unread        int
}

type entry struct {
	lastFetch time.Time
	inFlight  bool
	limiter   *rate.Limiter
}

func newEntry() *entry {
	return &entry{limiter: rate.NewLimiter(rate.Every(burstInterval), 1)}
}

// Coordinator is the process-wide notification cache and fetch deduplicator.
type Coordinator struct {
	mu          sync.Mutex
	backend     Backend
	bus         *events.Bus
	list        []*domain.Notification
	unread      int
	listEntry   *entry
	unreadEntry *entry
	subscribers map[int]func(Snapshot)
	nextID      int
	now         func() time.Time
}

func NewCoordinator(backend Backend, bus *events.Bus) *Coordinator {
	c := &Coordinator{
		backend:     backend,
		bus:         bus,
		listEntry:   newEntry(),
		unreadEntry: newEntry(),
		subscribers: make(map[int]func(Snapshot)),
		now:         time.Now,
	}
	if bus != nil {
		bus.Subscribe(events.TopicSessionExpired, func(any) { c.reset() })
	}
	return c
}

// reset drops all cached state when the session expires, so the next
// consumer starts from a cold cache instead of seeing the previous user's
// feed.
func (c *Coordinator) reset() {
	c.mu.Lock()
	c.list = nil
	c.unread = 0
	c.listEntry = newEntry()
	c.unreadEntry = newEntry()
	snapshot, notify := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snapshot, notify)
}

// Subscribe registers a callback invoked after every cache write. The
// returned function unregisters it.
func (c *Coordinator) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Notifications returns the cached feed.
func (c *Coordinator) Notifications() []*domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.Notification(nil), c.list...)
}

// Unread returns the cached unread count.
func (c *Coordinator) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// FetchList returns the notification feed. Inside the freshness window a
// non-forced call is served from cache with zero network activity; a call
// while another fetch is in flight returns the current cache rather than
// starting a duplicate; and the burst guard suppresses fetches, forced or
// not, within two seconds of the previous one.
func (c *Coordinator) FetchList(ctx context.Context, force bool) ([]*domain.Notification, error) {
	c.mu.Lock()
	if !c.shouldFetch(c.listEntry, force, "list") {
		cached := append([]*domain.Notification(nil), c.list...)
		c.mu.Unlock()
		return cached, nil
	}
	c.listEntry.inFlight = true
	c.mu.Unlock()

	ctx = observability.WithResource(ctx, "list")
	observability.CacheFetchesTotal.WithLabelValues("list", "miss").Inc()
	fetched, err := c.backend.List(ctx)

	c.mu.Lock()
	c.listEntry.inFlight = false
	if err != nil {
		cached := append([]*domain.Notification(nil), c.list...)
		c.mu.Unlock()
		observability.FromContext(ctx).Warn("feed fetch failed, serving cache",
			slog.String("error", err.Error()))
		return cached, err
	}
	c.list = filterAdminMessages(fetched)
	c.listEntry.lastFetch = c.now()
	cached, notify := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(cached, notify)
	return cached.Notifications, nil
}

// FetchUnread returns the unread count with the same cache semantics as
// FetchList.
func (c *Coordinator) FetchUnread(ctx context.Context, force bool) (int, error) {
	c.mu.Lock()
	if !c.shouldFetch(c.unreadEntry, force, "unread") {
		cached := c.unread
		c.mu.Unlock()
		return cached, nil
	}
	c.unreadEntry.inFlight = true
	c.mu.Unlock()

	observability.CacheFetchesTotal.WithLabelValues("unread", "miss").Inc()
	return c.refreshUnread(ctx, true)
}

// refreshUnread performs the network fetch for the unread count, bypassing
// freshness and the burst guard. Mutation paths use it to correct drift
// right after an optimistic write. The in-flight flag is cleared only by
// whoever set it: a mutation-path refresh racing a FetchUnread flight must
// not release that flight's marker early.
func (c *Coordinator) refreshUnread(ctx context.Context, owned bool) (int, error) {
	if !owned {
		c.mu.Lock()
		if !c.unreadEntry.inFlight {
			c.unreadEntry.inFlight = true
			owned = true
		}
		c.mu.Unlock()
	}

	ctx = observability.WithResource(ctx, "unread")
	count, err := c.backend.UnreadCount(ctx)

	c.mu.Lock()
	if owned {
		c.unreadEntry.inFlight = false
	}
	if err != nil {
		cached := c.unread
		c.mu.Unlock()
		observability.FromContext(ctx).Warn("unread fetch failed, serving cache",
			slog.String("error", err.Error()))
		return cached, err
	}
	c.unread = count
	c.unreadEntry.lastFetch = c.now()
	snapshot, notify := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snapshot, notify)
	return count, nil
}

// shouldFetch applies, in order: in-flight dedup, the freshness window,
// then the burst guard. Callers hold c.mu.
func (c *Coordinator) shouldFetch(e *entry, force bool, resource string) bool {
	if e.inFlight {
		observability.CacheFetchesTotal.WithLabelValues(resource, "coalesced").Inc()
		return false
	}
	if !force && !e.lastFetch.IsZero() && c.now().Sub(e.lastFetch) < FreshnessWindow {
		observability.CacheFetchesTotal.WithLabelValues(resource, "hit").Inc()
		return false
	}
	// A cache hit never consumes a burst token; only would-be network calls do.
	if !e.limiter.Allow() {
		observability.CacheFetchesTotal.WithLabelValues(resource, "throttled").Inc()
		return false
	}
	return true
}

// MarkRead flips a notification to read optimistically, then confirms with
// the backend and force-refreshes the unread count to correct any drift.
func (c *Coordinator) MarkRead(ctx context.Context, id string) error {
	c.mu.Lock()
	for _, n := range c.list {
		if n.ID == id && !n.Read {
			n.Read = true
			if c.unread > 0 {
				c.unread--
			}
			break
		}
	}
	snapshot, notify := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snapshot, notify)
	if c.bus != nil {
		c.bus.Publish(events.TopicNotificationRead, id)
	}

	if err := c.backend.MarkRead(ctx, id); err != nil {
		slog.Warn("mark-read failed, count will be corrected by refresh",
			slog.String("id", id), slog.String("error", err.Error()))
	}

	_, err := c.refreshUnread(ctx, false)
	return err
}

// MarkAllRead flips every notification to read optimistically, then
// confirms with the backend and force-refreshes the unread count.
func (c *Coordinator) MarkAllRead(ctx context.Context) error {
	c.mu.Lock()
	for _, n := range c.list {
		n.Read = true
	}
	c.unread = 0
	snapshot, notify := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snapshot, notify)
	if c.bus != nil {
		c.bus.Publish(events.TopicNotificationRead, "")
	}

	if err := c.backend.MarkAllRead(ctx); err != nil {
		slog.Warn("mark-all-read failed, count will be corrected by refresh",
			slog.String("error", err.Error()))
	}

	_, err := c.refreshUnread(ctx, false)
	return err
}

// Splice inserts a server-pushed notification at the head of the cache
// without a network round-trip. Admin direct messages never enter the feed;
// the chat surface owns them. A notification already present (same id) is
// dropped.
func (c *Coordinator) Splice(n *domain.Notification) {
	if n.IsAdminMessage() {
		return
	}

	c.mu.Lock()
	for _, existing := range c.list {
		if existing.ID != "" && existing.ID == n.ID {
			c.mu.Unlock()
			return
		}
	}
	c.list = append([]*domain.Notification{n}, c.list...)
	if !n.Read {
		c.unread++
	}
	snapshot, notify := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snapshot, notify)
}

// ForceRefresh refetches both resources, bypassing freshness and the burst
// guard. The reconciler falls back to it when a socket payload is too
// incomplete to splice.
func (c *Coordinator) ForceRefresh(ctx context.Context) error {
	c.mu.Lock()
	if c.listEntry.inFlight {
		c.mu.Unlock()
		return nil
	}
	c.listEntry.inFlight = true
	c.mu.Unlock()

	fetched, err := c.backend.List(ctx)

	c.mu.Lock()
	c.listEntry.inFlight = false
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.list = filterAdminMessages(fetched)
	c.listEntry.lastFetch = c.now()
	snapshot, notify := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snapshot, notify)

	_, err = c.refreshUnread(ctx, false)
	return err
}

// snapshotLocked copies the cache and subscriber set. Callers hold c.mu;
// the callbacks run after the lock is released so a subscriber may read
// the coordinator again.
func (c *Coordinator) snapshotLocked() (Snapshot, []func(Snapshot)) {
	snapshot := Snapshot{
		Notifications: append([]*domain.Notification(nil), c.list...),
		Unread:        c.unread,
	}
	notify := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		notify = append(notify, fn)
	}
	return snapshot, notify
}

func (c *Coordinator) publish(snapshot Snapshot, notify []func(Snapshot)) {
	for _, fn := range notify {
		fn(snapshot)
	}
	if c.bus != nil {
		c.bus.Publish(events.TopicNotificationUpdate, nil)
	}
}

func filterAdminMessages(list []*domain.Notification) []*domain.Notification {
	filtered := make([]*domain.Notification, 0, len(list))
	for _, n := range list {
		if n.IsAdminMessage() {
			continue
		}
		filtered = append(filtered, n)
	}
	return filtered
}
