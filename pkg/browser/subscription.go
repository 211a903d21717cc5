package browser

import (
	"context"
	"log/slog"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/browserproto"
	"github.com/arzzra/media_compat/pkg/core/compaterr"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
)

// subscription запись таблицы подписок: одна на parentID и набор параметров
type subscription struct {
	options  *binder.Bundle
	callback SubscriptionCallback
	// native адаптер записи для нативной подписки с параметрами
	native *entryAdapter
}

// Subscribe подписывается на детей parentID.
//
// Повторная подписка с теми же параметрами страницы заменяет callback, а не
// добавляет запись. Ошибка транспорта приходит в cb.OnError асинхронно.
func (b *Browser) Subscribe(ctx context.Context, parentID string, options *binder.Bundle, cb SubscriptionCallback) error {
	if parentID == "" {
		return compaterr.ErrIllegalArgument("subscribe", "parentId is empty")
	}
	if cb == nil {
		return compaterr.ErrIllegalArgument("subscribe", "callback is null")
	}
	options = options.Copy()

	b.mu.Lock()
	if state := b.fsm.Current(); state != StateConnected {
		b.mu.Unlock()
		return compaterr.ErrIllegalState("subscribe", state)
	}
	sub := b.putLocked(parentID, options, cb)
	token := b.tokenLocked(cb)
	wrapper, callbacks := b.subscriptionWrapperLocked()
	var fan *fanoutAdapter
	if wrapper == nil && !b.sys.Capabilities().NativeSubscribeOptions {
		fan = b.fanout[parentID]
		if fan == nil {
			fan = &fanoutAdapter{b: b}
			b.fanout[parentID] = fan
		}
	}
	b.mu.Unlock()

	var err error
	switch {
	case wrapper != nil:
		err = wrapper.addSubscription(ctx, parentID, token, options, callbacks)
	case fan != nil:
		err = b.native.Subscribe(ctx, parentID, nil, fan)
	default:
		err = b.native.Subscribe(ctx, parentID, options, sub.native)
	}
	if err != nil {
		b.log.Info("Browser.Subscribe: addSubscription failed",
			slog.String("id", parentID),
			slog.String("error", err.Error()))
		b.handler.Post(func() { cb.OnError(parentID, options) })
	}
	return nil
}

// Unsubscribe отписывает cb от parentID; cb == nil удаляет все подписки parentID.
// Ошибка транспорта приходит в OnError удаленных записей асинхронно.
func (b *Browser) Unsubscribe(ctx context.Context, parentID string, cb SubscriptionCallback) error {
	if parentID == "" {
		return compaterr.ErrIllegalArgument("unsubscribe", "parentId is empty")
	}

	b.mu.Lock()
	if state := b.fsm.Current(); state != StateConnected {
		b.mu.Unlock()
		return compaterr.ErrIllegalState("unsubscribe", state)
	}
	var token binder.IBinder
	if cb != nil {
		token = b.tokens[cb]
	}
	removed, remaining := b.removeLocked(parentID, cb)
	if remaining == 0 {
		delete(b.fanout, parentID)
	}
	b.pruneTokensLocked()
	wrapper, callbacks := b.subscriptionWrapperLocked()
	b.mu.Unlock()

	if len(removed) == 0 {
		b.log.Debug("Browser.Unsubscribe: no subscription", slog.String("id", parentID))
		return nil
	}

	fail := func(err error) {
		b.log.Info("Browser.Unsubscribe: removeSubscription failed",
			slog.String("id", parentID),
			slog.String("error", err.Error()))
		for _, sub := range removed {
			sub := sub
			b.handler.Post(func() { sub.callback.OnError(parentID, sub.options) })
		}
	}

	switch {
	case wrapper != nil:
		if err := wrapper.removeSubscription(ctx, parentID, token, callbacks); err != nil {
			fail(err)
		}
	case b.sys.Capabilities().NativeSubscribeOptions:
		for _, sub := range removed {
			if err := b.native.Unsubscribe(ctx, parentID, sub.native); err != nil {
				fail(err)
				break
			}
		}
	case remaining == 0:
		if err := b.native.Unsubscribe(ctx, parentID, nil); err != nil {
			fail(err)
		}
	}
	return nil
}

// Subscriptions количество записей таблицы для parentID
func (b *Browser) Subscriptions(parentID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[parentID])
}

// subscriptionWrapperLocked возвращает канал протокола для подписок.
// Платформа с нативными параметрами подписки и сервис версии 1 работают напрямую.
func (b *Browser) subscriptionWrapperLocked() (*serviceBinderWrapper, *looper.Messenger) {
	if b.wrapper == nil {
		return nil, nil
	}
	if b.sys.Capabilities().NativeSubscribeOptions && b.serviceVersion < browserproto.ServiceVersion2 {
		return nil, nil
	}
	return b.wrapper, b.callbacks
}

// putLocked добавляет запись или заменяет callback существующей; токен
// замененного callback освобождается, если других записей у него нет
func (b *Browser) putLocked(parentID string, options *binder.Bundle, cb SubscriptionCallback) *subscription {
	for _, sub := range b.subs[parentID] {
		if browserproto.AreSameOptions(sub.options, options) {
			if sub.callback != cb {
				sub.callback = cb
				b.pruneTokensLocked()
			}
			return sub
		}
	}
	sub := &subscription{options: options, callback: cb}
	sub.native = &entryAdapter{b: b, sub: sub}
	b.subs[parentID] = append(b.subs[parentID], sub)
	return sub
}

func (b *Browser) removeLocked(parentID string, cb SubscriptionCallback) (removed []*subscription, remaining int) {
	list := b.subs[parentID]
	if cb == nil {
		delete(b.subs, parentID)
		return list, 0
	}
	kept := make([]*subscription, 0, len(list))
	for _, sub := range list {
		if sub.callback == cb {
			removed = append(removed, sub)
			continue
		}
		kept = append(kept, sub)
	}
	if len(kept) == 0 {
		delete(b.subs, parentID)
	} else {
		b.subs[parentID] = kept
	}
	return removed, len(kept)
}

func (b *Browser) findLocked(parentID string, options *binder.Bundle) *subscription {
	for _, sub := range b.subs[parentID] {
		if browserproto.AreSameOptions(sub.options, options) {
			return sub
		}
	}
	return nil
}

func (b *Browser) containsLocked(parentID string, target *subscription) bool {
	for _, sub := range b.subs[parentID] {
		if sub == target {
			return true
		}
	}
	return false
}

// tokenLocked возвращает токен callback, по которому сервис различает подписки
func (b *Browser) tokenLocked(cb SubscriptionCallback) binder.IBinder {
	if token, ok := b.tokens[cb]; ok {
		return token
	}
	token := binder.NewBinder(b.proc, subscriptionTokenDescriptor, func(context.Context, uint32, *binder.Parcel, *binder.Parcel, uint32) (bool, error) {
		return false, nil
	})
	b.tokens[cb] = token
	return token
}

func (b *Browser) pruneTokensLocked() {
	used := make(map[SubscriptionCallback]bool, len(b.tokens))
	for _, list := range b.subs {
		for _, sub := range list {
			used[sub.callback] = true
		}
	}
	for cb, token := range b.tokens {
		if !used[cb] {
			delete(b.tokens, cb)
			if bb, ok := token.(*binder.Binder); ok {
				bb.Kill()
			}
		}
	}
}

// entryAdapter нативная подписка одной записи. Платформа сама передает
// параметры сервису, окно уже вырезано.
type entryAdapter struct {
	b   *Browser
	sub *subscription
}

var _ platform.SubscriptionCallback = (*entryAdapter)(nil)

func (a *entryAdapter) OnChildrenLoaded(parentID string, children []*media.MediaItem, _ *binder.Bundle) {
	if cb := a.callback(parentID); cb != nil {
		cb.OnChildrenLoaded(parentID, children, a.sub.options)
	}
}

func (a *entryAdapter) OnError(parentID string, _ *binder.Bundle) {
	if cb := a.callback(parentID); cb != nil {
		cb.OnError(parentID, a.sub.options)
	}
}

func (a *entryAdapter) callback(parentID string) SubscriptionCallback {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if !a.b.containsLocked(parentID, a.sub) {
		return nil
	}
	return a.sub.callback
}

// fanoutAdapter одна нативная подписка без параметров на parentID.
// Полный список раздается всем записям, каждой в окне ее страницы.
type fanoutAdapter struct {
	b *Browser
}

var _ platform.SubscriptionCallback = (*fanoutAdapter)(nil)

func (a *fanoutAdapter) OnChildrenLoaded(parentID string, children []*media.MediaItem, _ *binder.Bundle) {
	for _, sub := range a.snapshot(parentID) {
		window := children
		if sub.options != nil {
			window = browserproto.ApplyOptions(children, sub.options)
		}
		if window == nil {
			sub.callback.OnError(parentID, sub.options)
			continue
		}
		sub.callback.OnChildrenLoaded(parentID, window, sub.options)
	}
}

func (a *fanoutAdapter) OnError(parentID string, _ *binder.Bundle) {
	for _, sub := range a.snapshot(parentID) {
		sub.callback.OnError(parentID, sub.options)
	}
}

func (a *fanoutAdapter) snapshot(parentID string) []subscription {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	out := make([]subscription, 0, len(a.b.subs[parentID]))
	for _, sub := range a.b.subs[parentID] {
		out = append(out, *sub)
	}
	return out
}
