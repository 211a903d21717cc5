// Package aidl содержит пары stub/proxy удаленных интерфейсов сессии:
// IMediaSession (контроллер -> сессия) и IMediaControllerCallback (сессия -> контроллер).
//
// Коды транзакций зафиксированы навсегда: обе стороны могут быть собраны
// разными версиями библиотеки. Пропуски в нумерации сохраняются.
package aidl

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/core/metrics"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
)

// ProxyOption настраивает прокси
type ProxyOption func(*proxyConfig)

type proxyConfig struct {
	sessionFallback  MediaSession
	callbackFallback MediaControllerCallback
	metrics          *metrics.Collector
}

// WithMediaSessionFallback задает запасную реализацию для конкретного прокси.
// Она имеет приоритет над реализацией, установленной через SetMediaSessionDefaultImpl.
func WithMediaSessionFallback(impl MediaSession) ProxyOption {
	return func(c *proxyConfig) { c.sessionFallback = impl }
}

// WithControllerCallbackFallback задает запасную реализацию для прокси callback
func WithControllerCallbackFallback(impl MediaControllerCallback) ProxyOption {
	return func(c *proxyConfig) { c.callbackFallback = impl }
}

// WithMetrics задает набор метрик; по умолчанию используется metrics.Default()
func WithMetrics(m *metrics.Collector) ProxyOption {
	return func(c *proxyConfig) { c.metrics = m }
}

func newProxyConfig(opts []ProxyOption) proxyConfig {
	var c proxyConfig
	for _, opt := range opts {
		opt(&c)
	}
	if c.metrics == nil {
		c.metrics = metrics.Default()
	}
	return c
}

// transaction описывает один вызов прокси
type transaction struct {
	iface      string
	descriptor string
	code       uint32
	method     string
	oneway     bool
	write      func(data *binder.Parcel)
	read       func(reply *binder.Parcel)
}

// outcome результат транзакции с точки зрения прокси
type outcome int

const (
	outcomeOK outcome = iota
	// outcomeFallback механизм транзакций отказал, и есть запасная реализация
	outcomeFallback
	outcomeFailed
)

// run выполняет транзакцию. Буферы освобождаются при любом исходе,
// в том числе до вызова запасной реализации.
func (t transaction) run(ctx context.Context, remote binder.IBinder, m *metrics.Collector, hasFallback bool) (outcome, error) {
	start := time.Now()
	data := binder.Obtain()
	defer data.Recycle()
	var reply *binder.Parcel
	flags := uint32(0)
	if t.oneway {
		flags = binder.FlagOneway
	} else {
		reply = binder.Obtain()
		defer reply.Recycle()
	}

	data.WriteInterfaceToken(t.descriptor)
	if t.write != nil {
		t.write(data)
	}
	status, err := remote.Transact(ctx, t.code, data, reply, flags)
	if !t.oneway {
		m.TransactionDuration.WithLabelValues(t.iface).Observe(time.Since(start).Seconds())
	}
	if !status {
		if hasFallback {
			m.Transactions.WithLabelValues(t.iface, t.method, metrics.OutcomeFallback).Inc()
			m.DefaultImplCalls.WithLabelValues(t.iface).Inc()
			return outcomeFallback, nil
		}
		m.Transactions.WithLabelValues(t.iface, t.method, metrics.OutcomeTransport).Inc()
		if err == nil {
			err = binder.ErrTransactionFailed
		}
		return outcomeFailed, errors.Wrapf(err, "%s.%s", t.iface, t.method)
	}
	if t.oneway {
		m.Transactions.WithLabelValues(t.iface, t.method, metrics.OutcomeOK).Inc()
		return outcomeOK, nil
	}

	if err := reply.ReadException(); err != nil {
		m.Transactions.WithLabelValues(t.iface, t.method, metrics.OutcomeRemoteError).Inc()
		return outcomeFailed, err
	}
	if t.read != nil {
		t.read(reply)
	}
	if err := reply.Err(); err != nil {
		m.Transactions.WithLabelValues(t.iface, t.method, metrics.OutcomeRemoteError).Inc()
		return outcomeFailed, errors.Wrapf(err, "%s.%s: reply", t.iface, t.method)
	}
	m.Transactions.WithLabelValues(t.iface, t.method, metrics.OutcomeOK).Inc()
	return outcomeOK, nil
}

// Необязательные значения предваряются маркером присутствия: 0 - нет, 1 - есть.

func writeOptional[T any, PT interface {
	*T
	binder.Parcelable
}](p *binder.Parcel, v PT) {
	if v == nil {
		p.WriteInt32(0)
		return
	}
	p.WriteInt32(1)
	v.WriteToParcel(p)
}

func readOptional[T any](p *binder.Parcel, read func(*binder.Parcel) *T) *T {
	if p.ReadInt32() == 0 {
		return nil
	}
	return read(p)
}

func writeOptionalBundle(p *binder.Parcel, b *binder.Bundle) {
	if b == nil {
		p.WriteInt32(0)
		return
	}
	p.WriteInt32(1)
	p.WriteBundle(b)
}

func readOptionalBundle(p *binder.Parcel) *binder.Bundle {
	if p.ReadInt32() == 0 {
		return nil
	}
	return p.ReadBundle()
}

// writeOptionalString используется для CharSequence и Uri: пустая строка передается как отсутствие значения
func writeOptionalString(p *binder.Parcel, s string, write func(*binder.Parcel, string)) {
	if s == "" {
		p.WriteInt32(0)
		return
	}
	p.WriteInt32(1)
	write(p, s)
}

func readOptionalString(p *binder.Parcel, read func(*binder.Parcel) string) string {
	if p.ReadInt32() == 0 {
		return ""
	}
	return read(p)
}

func writeResultReceiver(p *binder.Parcel, rr *looper.ResultReceiver) {
	writeOptional(p, rr)
}

func readResultReceiver(p *binder.Parcel) *looper.ResultReceiver {
	if p.ReadInt32() == 0 {
		return nil
	}
	return looper.ResultReceiverFromBinder(p.ReadStrongBinder())
}

func readQueue(p *binder.Parcel) []*media.QueueItem {
	return binder.ReadTypedList(p, media.ReadQueueItem)
}

// serve общая часть обработчика stub: аргументы уже прочитаны, call вызывает реализацию
// и записывает результат после слота исключения.
func serve(data, reply *binder.Parcel, call func() (func(*binder.Parcel), error)) (bool, error) {
	if err := data.Err(); err != nil {
		return true, errors.Wrap(err, "malformed transaction arguments")
	}
	write, err := call()
	if err != nil {
		return true, err
	}
	if reply != nil {
		reply.WriteNoException()
		if write != nil {
			write(reply)
		}
	}
	return true, nil
}

// void упрощает serve для методов без результата
func void(err error) (func(*binder.Parcel), error) {
	return nil, err
}

// returns упрощает serve для методов с результатом
func returns[T any](v T, err error, write func(*binder.Parcel, T)) (func(*binder.Parcel), error) {
	if err != nil {
		return nil, err
	}
	return func(p *binder.Parcel) { write(p, v) }, nil
}
