package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jask/slipbook/internal/aggregate"
	"github.com/jask/slipbook/internal/cache"
	"github.com/jask/slipbook/internal/remote"
	"github.com/jask/slipbook/internal/slip"
)

// collection is one slip list plus the remote table it mirrors to. Entries
// are guarded by the engine mutex.
type collection[T slip.Data] struct {
	kind    slip.Kind
	entries []slip.Entry[T]
	remote  remote.SlipStore[T]
}

func (c *collection[T]) indexOf(key string) int {
	for i, e := range c.entries {
		if e.LocalKey() == key {
			return i
		}
	}
	return -1
}

func (c *collection[T]) token(key string) string {
	return string(c.kind) + "/" + key
}

// save writes the collection document. Callers hold e.mu.
func (c *collection[T]) save(ctx context.Context, store cache.Store) error {
	if err := cache.SaveEntries(ctx, store, c.entries); err != nil {
		return fmt.Errorf("save %s locally: %w", c.kind, err)
	}
	return nil
}

func list[T slip.Data](e *Engine, c *collection[T]) []slip.Entry[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]slip.Entry[T](nil), c.entries...)
}

func entryFields[T slip.Data](c *collection[T], entry slip.Entry[T]) logrus.Fields {
	f := logrus.Fields{"collection": c.kind, "key": entry.LocalKey()}
	if id, ok := slip.RemoteID(entry); ok {
		f["remote_id"] = id
	}
	return f
}

// add appends data as a pending entry, then tries to create it remotely.
func add[T slip.Data](ctx context.Context, e *Engine, c *collection[T], data T) (slip.Entry[T], error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	e.begin()
	defer e.finish()

	e.mu.Lock()
	entry := slip.Entry[T](slip.Pending[T]{Key: e.keys.Generate(), Data: data})
	release, err := e.locks.acquire(c.token(entry.LocalKey()))
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	defer release()

	c.entries = append(c.entries, entry)
	e.profile.Derived = aggregate.Apply(e.profile.Derived, e.profile.Settings, data, aggregate.Add)
	err = errors.Join(c.save(ctx, e.store), e.saveProfile(ctx), e.touchProfile(ctx))
	account, linked := e.linkedAccount()
	e.mu.Unlock()

	log := e.log.WithFields(entryFields(c, entry))
	if err != nil {
		log.WithError(err).Error("add aborted")
		return entry, err
	}
	if !linked {
		log.Debug("added locally")
		return entry, nil
	}

	rec, err := c.remote.Create(ctx, account, data)
	if err != nil {
		log.WithError(err).Warn("remote create failed, entry left pending")
		return entry, &SyncError{Op: "add", Kind: c.kind, Key: entry.LocalKey(), Err: err}
	}
	synced, err := adopt(ctx, e, c, entry.LocalKey(), rec)
	if err != nil {
		return synced, err
	}
	_ = e.pushProfile(ctx)
	e.emit(EventSaveCompleted)
	return synced, nil
}

// update replaces the data at index. The entry keeps its key and remote
// identifier; derived fields take back the old slip before adding the new one.
func update[T slip.Data](ctx context.Context, e *Engine, c *collection[T], index int, data T) (slip.Entry[T], error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	e.begin()
	defer e.finish()

	e.mu.Lock()
	if index < 0 || index >= len(c.entries) {
		e.mu.Unlock()
		return nil, fmt.Errorf("update %s %d: %w", c.kind, index, ErrIndexOutOfRange)
	}
	prev := c.entries[index]
	release, err := e.locks.acquire(c.token(prev.LocalKey()))
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	defer release()

	next := slip.WithData(prev, data)
	c.entries[index] = next
	e.profile.Derived = aggregate.Replace(e.profile.Derived, e.profile.Settings, prev.Slip(), data)
	err = errors.Join(c.save(ctx, e.store), e.saveProfile(ctx), e.touchProfile(ctx))
	account, linked := e.linkedAccount()
	e.mu.Unlock()

	log := e.log.WithFields(entryFields(c, prev))
	if err != nil {
		log.WithError(err).Error("update aborted")
		return next, err
	}
	if !linked {
		return next, nil
	}

	var rec remote.Record[T]
	if id, ok := slip.RemoteID(prev); ok {
		rec, err = c.remote.Update(ctx, account, id, data)
		if remote.IsNotFound(err) {
			log.Info("remote record gone, recreating")
			rec, err = c.remote.Create(ctx, account, data)
		}
	} else {
		rec, err = c.remote.Create(ctx, account, data)
	}
	if err != nil {
		log.WithError(err).Warn("remote update failed")
		return next, &SyncError{Op: "update", Kind: c.kind, Key: prev.LocalKey(), Err: err}
	}
	synced, err := adopt(ctx, e, c, prev.LocalKey(), rec)
	if err != nil {
		return synced, err
	}
	_ = e.pushProfile(ctx)
	e.emit(EventSaveCompleted)
	return synced, nil
}

// remove deletes the entry at index locally, then remotely. A remote failure
// never restores the local entry.
func remove[T slip.Data](ctx context.Context, e *Engine, c *collection[T], index int) error {
	e.begin()
	defer e.finish()

	e.mu.Lock()
	if index < 0 || index >= len(c.entries) {
		e.mu.Unlock()
		return fmt.Errorf("delete %s %d: %w", c.kind, index, ErrIndexOutOfRange)
	}
	prev := c.entries[index]
	release, err := e.locks.acquire(c.token(prev.LocalKey()))
	if err != nil {
		e.mu.Unlock()
		return err
	}
	defer release()

	c.entries = append(c.entries[:index:index], c.entries[index+1:]...)
	e.profile.Derived = aggregate.Apply(e.profile.Derived, e.profile.Settings, prev.Slip(), aggregate.Remove)
	err = errors.Join(c.save(ctx, e.store), e.saveProfile(ctx), e.touchProfile(ctx))
	account, linked := e.linkedAccount()
	e.mu.Unlock()

	log := e.log.WithFields(entryFields(c, prev))
	if err != nil {
		log.WithError(err).Error("delete aborted")
		return err
	}
	id, synced := slip.RemoteID(prev)
	if !linked || !synced {
		return nil
	}

	err = c.remote.Delete(ctx, account, id)
	if err != nil && !remote.IsNotFound(err) {
		log.WithError(err).Warn("remote delete failed")
		return &SyncError{Op: "delete", Kind: c.kind, Key: prev.LocalKey(), Err: err}
	}
	_ = e.pushProfile(ctx)
	e.emit(EventSaveCompleted)
	return nil
}

// adopt marks the entry under key as synced with rec's identifier. An entry
// that disappeared in the meantime (unlink, refresh) is left alone.
func adopt[T slip.Data](ctx context.Context, e *Engine, c *collection[T], key string, rec remote.Record[T]) (slip.Entry[T], error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := c.indexOf(key)
	synced := slip.Entry[T](slip.Synced[T]{Key: key, ID: rec.ID, CreatedAt: rec.CreatedAt, Data: rec.Data})
	if i < 0 {
		return synced, nil
	}
	synced = slip.Synced[T]{Key: key, ID: rec.ID, CreatedAt: rec.CreatedAt, Data: c.entries[i].Slip()}
	c.entries[i] = synced
	return synced, c.save(ctx, e.store)
}

// pushPending creates every pending entry of c remotely. Entries whose token
// is held by another operation are skipped.
func pushPending[T slip.Data](ctx context.Context, e *Engine, c *collection[T], account string) (int, error) {
	e.mu.Lock()
	var pending []slip.Entry[T]
	for _, entry := range c.entries {
		if slip.IsPending(entry) {
			pending = append(pending, entry)
		}
	}
	e.mu.Unlock()

	var (
		pushed int
		errs   []error
	)
	for _, entry := range pending {
		release, err := e.locks.acquire(c.token(entry.LocalKey()))
		if err != nil {
			continue
		}
		e.mu.Lock()
		i := c.indexOf(entry.LocalKey())
		if i < 0 || !slip.IsPending(c.entries[i]) {
			e.mu.Unlock()
			release()
			continue
		}
		entry = c.entries[i]
		e.mu.Unlock()

		rec, err := c.remote.Create(ctx, account, entry.Slip())
		if err != nil {
			release()
			e.log.WithFields(entryFields(c, entry)).WithError(err).Warn("pending entry not pushed")
			errs = append(errs, &SyncError{Op: "sync", Kind: c.kind, Key: entry.LocalKey(), Err: err})
			continue
		}
		_, err = adopt(ctx, e, c, entry.LocalKey(), rec)
		release()
		if err != nil {
			return pushed, err
		}
		pushed++
	}
	return pushed, errors.Join(errs...)
}
