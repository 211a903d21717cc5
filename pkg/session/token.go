package session

import (
	"sync"

	"github.com/arzzra/media_compat/pkg/aidl"
	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/platform"
)

const tokenParcelable = "android.support.v4.media.session.MediaSessionCompat$Token"

func init() {
	binder.RegisterCreator(tokenParcelable, func(p *binder.Parcel) binder.Parcelable {
		inner, _ := p.ReadParcelable().(*platform.SessionToken)
		if inner == nil {
			return nil
		}
		return NewToken(inner, nil)
	})
}

// Token идентифицирует сессию между процессами.
//
// Кроме нативного токена содержит extra binder и токен сессии нового поколения.
// Оба появляются асинхронно: контроллер получает их после запроса
// CommandGetExtraBinder, поэтому их отсутствие при первом обращении нормально.
type Token struct {
	native *platform.SessionToken

	mu            sync.Mutex
	extraBinder   aidl.IMediaSession
	session2Token *binder.Bundle
}

var _ binder.Parcelable = (*Token)(nil)

// NewToken оборачивает нативный токен; для nil возвращает nil
func NewToken(native *platform.SessionToken, extraBinder aidl.IMediaSession) *Token {
	if native == nil {
		return nil
	}
	return &Token{native: native, extraBinder: extraBinder}
}

// Native возвращает нативный токен
func (t *Token) Native() *platform.SessionToken {
	return t.native
}

// ExtraBinder возвращает extra binder или nil, если он еще не получен
func (t *Token) ExtraBinder() aidl.IMediaSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.extraBinder
}

func (t *Token) SetExtraBinder(b aidl.IMediaSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.extraBinder = b
}

// Session2Token возвращает токен сессии нового поколения
func (t *Token) Session2Token() *binder.Bundle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session2Token
}

func (t *Token) SetSession2Token(token *binder.Bundle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session2Token = token
}

// Equal сравнивает только нативные токены
func (t *Token) Equal(other *Token) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.native.Equal(other.native)
}

// ToBundle упаковывает токен вместе с extra binder
func (t *Token) ToBundle() *binder.Bundle {
	b := binder.NewBundle()
	b.PutParcelable(KeyToken, t.native)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.extraBinder != nil {
		b.PutBinder(KeyExtraBinder, t.extraBinder.AsBinder())
	}
	if t.session2Token != nil {
		b.PutBundle(KeySession2Token, t.session2Token)
	}
	return b
}

// FromBundle восстанавливает токен, упакованный ToBundle
func FromBundle(b *binder.Bundle) *Token {
	if b == nil {
		return nil
	}
	native, _ := b.GetParcelable(KeyToken).(*platform.SessionToken)
	t := NewToken(native, aidl.AsMediaSession(b.GetBinder(KeyExtraBinder)))
	if t == nil {
		return nil
	}
	t.session2Token = b.GetBundle(KeySession2Token)
	return t
}

func (t *Token) ParcelableName() string { return tokenParcelable }

// WriteToParcel пишет только нативный токен: extra binder передается отдельно
func (t *Token) WriteToParcel(p *binder.Parcel) {
	p.WriteParcelable(t.native)
}
