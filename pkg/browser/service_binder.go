package browser

import (
	"context"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/browserproto"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
)

// serviceBinderWrapper отправляет запросы messenger сервиса
type serviceBinderWrapper struct {
	proc      *binder.Process
	messenger *looper.Messenger
	rootHints *binder.Bundle
	metrics   *metrics.Collector
}

func newServiceBinderWrapper(proc *binder.Process, target binder.IBinder, rootHints *binder.Bundle, m *metrics.Collector) *serviceBinderWrapper {
	return &serviceBinderWrapper{
		proc:      proc,
		messenger: looper.MessengerFromBinder(target),
		rootHints: rootHints,
		metrics:   m,
	}
}

func (w *serviceBinderWrapper) registerCallbackMessenger(ctx context.Context, callbacks *looper.Messenger) error {
	data := binder.NewBundle()
	data.PutString(browserproto.DataPackageName, w.proc.Package)
	data.PutInt(browserproto.DataCallingPID, w.proc.PID)
	data.PutBundle(browserproto.DataRootHints, w.rootHints)
	return w.send(ctx, browserproto.ClientMsgRegisterCallbackMessenger, data, callbacks)
}

func (w *serviceBinderWrapper) unregisterCallbackMessenger(ctx context.Context, callbacks *looper.Messenger) error {
	return w.send(ctx, browserproto.ClientMsgUnregisterCallbackMessenger, nil, callbacks)
}

func (w *serviceBinderWrapper) addSubscription(ctx context.Context, parentID string, token binder.IBinder, options *binder.Bundle, callbacks *looper.Messenger) error {
	data := binder.NewBundle()
	data.PutString(browserproto.DataMediaItemID, parentID)
	data.PutBinder(browserproto.DataCallbackToken, token)
	data.PutBundle(browserproto.DataOptions, options)
	return w.send(ctx, browserproto.ClientMsgAddSubscription, data, callbacks)
}

// removeSubscription с token == nil удаляет все подписки parentID
func (w *serviceBinderWrapper) removeSubscription(ctx context.Context, parentID string, token binder.IBinder, callbacks *looper.Messenger) error {
	data := binder.NewBundle()
	data.PutString(browserproto.DataMediaItemID, parentID)
	data.PutBinder(browserproto.DataCallbackToken, token)
	return w.send(ctx, browserproto.ClientMsgRemoveSubscription, data, callbacks)
}

func (w *serviceBinderWrapper) getMediaItem(ctx context.Context, itemID string, rr *looper.ResultReceiver, callbacks *looper.Messenger) error {
	data := binder.NewBundle()
	data.PutString(browserproto.DataMediaItemID, itemID)
	data.PutParcelable(browserproto.DataResultReceiver, rr)
	return w.send(ctx, browserproto.ClientMsgGetMediaItem, data, callbacks)
}

func (w *serviceBinderWrapper) search(ctx context.Context, query string, extras *binder.Bundle, rr *looper.ResultReceiver, callbacks *looper.Messenger) error {
	data := binder.NewBundle()
	data.PutString(browserproto.DataSearchQuery, query)
	data.PutBundle(browserproto.DataSearchExtras, extras)
	data.PutParcelable(browserproto.DataResultReceiver, rr)
	return w.send(ctx, browserproto.ClientMsgSearch, data, callbacks)
}

func (w *serviceBinderWrapper) sendCustomAction(ctx context.Context, action string, extras *binder.Bundle, rr *looper.ResultReceiver, callbacks *looper.Messenger) error {
	data := binder.NewBundle()
	data.PutString(browserproto.DataCustomAction, action)
	data.PutBundle(browserproto.DataCustomActionExtras, extras)
	data.PutParcelable(browserproto.DataResultReceiver, rr)
	return w.send(ctx, browserproto.ClientMsgSendCustomAction, data, callbacks)
}

func (w *serviceBinderWrapper) send(ctx context.Context, what int, data *binder.Bundle, callbacks *looper.Messenger) error {
	w.metrics.BrowserMessages.WithLabelValues("out", browserproto.ClientMsgName(what)).Inc()
	msg := &looper.Message{
		What:    what,
		Arg1:    browserproto.ClientVersionCurrent,
		Data:    data,
		ReplyTo: callbacks,
	}
	return w.messenger.Send(w.proc.Context(ctx), msg)
}
