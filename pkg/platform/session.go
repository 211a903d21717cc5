package platform

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/looper"
	"github.com/arzzra/media_compat/pkg/media"
)

const (
	// SessionDescriptor дескриптор нативной сессии
	SessionDescriptor = "android.media.session.ISession"
	// ControllerCallbackDescriptor дескриптор нативного callback контроллера
	ControllerCallbackDescriptor = "android.media.session.ISessionControllerCallback"

	sessionTokenParcelable = "android.media.session.MediaSession$Token"
)

// Операции нативной сессии
const (
	opSendCommand         = "sendCommand"
	opDispatchMediaButton = "dispatchMediaButton"
	opPrepare             = "prepare"
	opPrepareFromMediaID  = "prepareFromMediaId"
	opPrepareFromSearch   = "prepareFromSearch"
	opPrepareFromURI      = "prepareFromUri"
	opPlay                = "play"
	opPlayFromMediaID     = "playFromMediaId"
	opPlayFromSearch      = "playFromSearch"
	opPlayFromURI         = "playFromUri"
	opSkipToQueueItem     = "skipToQueueItem"
	opPause               = "pause"
	opStop                = "stop"
	opNext                = "next"
	opPrevious            = "previous"
	opFastForward         = "fastForward"
	opRewind              = "rewind"
	opSeekTo              = "seekTo"
	opRate                = "rate"
	opSetPlaybackSpeed    = "setPlaybackSpeed"
	opSendCustomAction    = "sendCustomAction"
	opAdjustVolume        = "adjustVolume"
	opSetVolumeTo         = "setVolumeTo"
	opGetPlaybackState    = "getPlaybackState"
	opGetMetadata         = "getMetadata"
	opGetQueue            = "getQueue"
	opGetQueueTitle       = "getQueueTitle"
	opGetExtras           = "getExtras"
	opGetFlags            = "getFlags"
	opGetRatingType       = "getRatingType"
	opGetPlaybackInfo     = "getPlaybackInfo"
	opGetPackageName      = "getPackageName"
	opGetTag              = "getTag"
	opGetLaunchIntent     = "getLaunchPendingIntent"
	opGetSessionInfo      = "getSessionInfo"
	opRegisterCallback    = "registerCallback"
	opUnregisterCallback  = "unregisterCallback"
	opOnSessionEvent      = "onSessionEvent"
	opOnPlaybackState     = "onPlaybackStateChanged"
	opOnMetadata          = "onMetadataChanged"
	opOnQueue             = "onQueueChanged"
	opOnQueueTitle        = "onQueueTitleChanged"
	opOnExtras            = "onExtrasChanged"
	opOnAudioInfo         = "onAudioInfoChanged"
	opOnSessionDestroyed  = "onSessionDestroyed"
)

// Ключи аргументов нативных операций
const (
	keyArgs         = "args"
	keyCommand      = "command"
	keyReceiver     = "receiver"
	keyEvent        = "event"
	keyExtras       = "extras"
	keyMediaID      = "mediaId"
	keyQuery        = "query"
	keyURI          = "uri"
	keyID           = "id"
	keyPosition     = "pos"
	keyRating       = "rating"
	keySpeed        = "speed"
	keyAction       = "action"
	keyDirection    = "direction"
	keyFlags        = "flags"
	keyValue        = "value"
	keyPackage      = "packageName"
	keyCallback     = "callback"
	keyResult       = "result"
	keyHandled      = "handled"
	keyState        = "state"
	keyMetadata     = "metadata"
	keyQueue        = "queue"
	keyTitle        = "title"
	keyPlaybackInfo = "playbackInfo"
	keyLaunchIntent = "launchIntent"
	keySessionInfo  = "sessionInfo"
	keyRatingType   = "ratingType"
	keyTag          = "tag"
	keyKeyEvent     = "keyEvent"
)

const (
	defaultVolumeMax        = 15
	defaultAudioStreamMusic = 3
)

func init() {
	binder.RegisterCreator(sessionTokenParcelable, func(p *binder.Parcel) binder.Parcelable {
		b := p.ReadStrongBinder()
		if b == nil {
			return nil
		}
		return &SessionToken{binder: b}
	})
}

// SessionToken нативный токен сессии
type SessionToken struct {
	binder binder.IBinder
}

var _ binder.Parcelable = (*SessionToken)(nil)

// NewSessionToken оборачивает binder сессии
func NewSessionToken(b binder.IBinder) *SessionToken {
	if b == nil {
		return nil
	}
	return &SessionToken{binder: b}
}

func (t *SessionToken) Binder() binder.IBinder {
	return t.binder
}

// Equal сравнивает токены по binder сессии
func (t *SessionToken) Equal(other *SessionToken) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.binder == other.binder
}

func (t *SessionToken) ParcelableName() string { return sessionTokenParcelable }

func (t *SessionToken) WriteToParcel(p *binder.Parcel) {
	p.WriteStrongBinder(t.binder)
}

// SessionCallback получает команды нативной сессии.
// Вызовы выполняются в Looper сессии; ctx содержит идентичность вызывающего контроллера.
type SessionCallback interface {
	OnCommand(ctx context.Context, command string, args *binder.Bundle, cb *looper.ResultReceiver)
	OnMediaButtonEvent(ctx context.Context, event *media.KeyEvent) bool
	OnPrepare(ctx context.Context)
	OnPrepareFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle)
	OnPrepareFromSearch(ctx context.Context, query string, extras *binder.Bundle)
	OnPrepareFromURI(ctx context.Context, uri string, extras *binder.Bundle)
	OnPlay(ctx context.Context)
	OnPlayFromMediaID(ctx context.Context, mediaID string, extras *binder.Bundle)
	OnPlayFromSearch(ctx context.Context, query string, extras *binder.Bundle)
	OnPlayFromURI(ctx context.Context, uri string, extras *binder.Bundle)
	OnSkipToQueueItem(ctx context.Context, id int64)
	OnPause(ctx context.Context)
	OnSkipToNext(ctx context.Context)
	OnSkipToPrevious(ctx context.Context)
	OnFastForward(ctx context.Context)
	OnRewind(ctx context.Context)
	OnStop(ctx context.Context)
	OnSeekTo(ctx context.Context, pos int64)
	OnSetRating(ctx context.Context, rating *media.Rating, extras *binder.Bundle)
	OnSetPlaybackSpeed(ctx context.Context, speed float32)
	OnCustomAction(ctx context.Context, action string, extras *binder.Bundle)
}

// VolumeProvider обрабатывает изменения громкости удаленного воспроизведения
type VolumeProvider interface {
	OnAdjustVolume(direction int)
	OnSetVolumeTo(value int)
}

// Session нативная сессия в процессе плеера
type Session struct {
	sys         *System
	proc        *binder.Process
	tag         string
	binder      *binder.Binder
	token       *SessionToken
	controllers *binder.CallbackList[binderRef]

	mu             sync.Mutex
	callback       SessionCallback
	handler        *looper.Handler
	active         bool
	flags          int64
	state          *media.PlaybackState
	metadata       *media.Metadata
	queue          []*media.QueueItem
	queueTitle     string
	extras         *binder.Bundle
	ratingType     int
	launchIntent   *media.PendingIntent
	sessionInfo    *binder.Bundle
	volume         *media.VolumeInfo
	volumeProvider VolumeProvider
	released       bool
}

// NewSession создает нативную сессию процесса proc
func NewSession(sys *System, proc *binder.Process, tag string, sessionInfo *binder.Bundle) *Session {
	s := &Session{
		sys:         sys,
		proc:        proc,
		tag:         tag,
		sessionInfo: sessionInfo.Copy(),
		volume: &media.VolumeInfo{
			VolumeType:    media.PlaybackTypeLocal,
			AudioStream:   defaultAudioStreamMusic,
			ControlType:   media.VolumeControlAbsolute,
			MaxVolume:     defaultVolumeMax,
			CurrentVolume: defaultVolumeMax / 2,
		},
	}
	s.controllers = binder.NewCallbackList[binderRef](nil)
	s.binder = newOpBinder(proc, SessionDescriptor, s.onTransact)
	s.token = &SessionToken{binder: s.binder}
	return s
}

// Token возвращает токен сессии
func (s *Session) Token() *SessionToken {
	return s.token
}

// Process возвращает процесс сессии
func (s *Session) Process() *binder.Process {
	return s.proc
}

// System возвращает платформу сессии
func (s *Session) System() *System {
	return s.sys
}

// SetCallback задает callback; nil отключает обработку команд
func (s *Session) SetCallback(cb SessionCallback, h *looper.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil {
		h = looper.NewHandler(nil, nil)
	}
	s.callback = cb
	s.handler = h
}

func (s *Session) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) SetFlags(flags int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags
}

func (s *Session) SetRatingType(t int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratingType = t
}

func (s *Session) SetSessionActivity(pi *media.PendingIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchIntent = pi
}

func (s *Session) SetPlaybackState(state *media.PlaybackState) {
	s.mu.Lock()
	s.state = state.Copy()
	s.mu.Unlock()
	s.broadcast(opOnPlaybackState, bundleOf(keyState, state))
}

func (s *Session) SetMetadata(m *media.Metadata) {
	s.mu.Lock()
	s.metadata = m
	s.mu.Unlock()
	s.broadcast(opOnMetadata, bundleOf(keyMetadata, m))
}

func (s *Session) SetQueue(queue []*media.QueueItem) {
	s.mu.Lock()
	s.queue = append([]*media.QueueItem(nil), queue...)
	s.mu.Unlock()
	s.broadcast(opOnQueue, bundleOf(keyQueue, queueToParcelables(queue)))
}

func (s *Session) SetQueueTitle(title string) {
	s.mu.Lock()
	s.queueTitle = title
	s.mu.Unlock()
	s.broadcast(opOnQueueTitle, bundleOf(keyTitle, title))
}

func (s *Session) SetExtras(extras *binder.Bundle) {
	s.mu.Lock()
	s.extras = extras.Copy()
	s.mu.Unlock()
	s.broadcast(opOnExtras, bundleOf(keyExtras, extras))
}

// SendSessionEvent рассылает событие нативным контроллерам
func (s *Session) SendSessionEvent(event string, extras *binder.Bundle) {
	s.broadcast(opOnSessionEvent, bundleOf(keyEvent, event, keyExtras, extras))
}

// SetPlaybackToLocal переключает громкость на локальный аудиопоток
func (s *Session) SetPlaybackToLocal(stream int) {
	s.mu.Lock()
	s.volume = &media.VolumeInfo{
		VolumeType:    media.PlaybackTypeLocal,
		AudioStream:   stream,
		ControlType:   media.VolumeControlAbsolute,
		MaxVolume:     defaultVolumeMax,
		CurrentVolume: s.volume.CurrentVolume,
	}
	s.volumeProvider = nil
	info := *s.volume
	s.mu.Unlock()
	s.broadcast(opOnAudioInfo, bundleOf(keyPlaybackInfo, &info))
}

// SetPlaybackToRemote передает управление громкостью провайдеру
func (s *Session) SetPlaybackToRemote(controlType, maxVolume, currentVolume int, provider VolumeProvider) {
	s.mu.Lock()
	s.volume = &media.VolumeInfo{
		VolumeType:    media.PlaybackTypeRemote,
		AudioStream:   s.volume.AudioStream,
		ControlType:   controlType,
		MaxVolume:     maxVolume,
		CurrentVolume: currentVolume,
	}
	s.volumeProvider = provider
	info := *s.volume
	s.mu.Unlock()
	s.broadcast(opOnAudioInfo, bundleOf(keyPlaybackInfo, &info))
}

// PlaybackInfo возвращает текущие параметры громкости
func (s *Session) PlaybackInfo() *media.VolumeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := *s.volume
	return &info
}

// Release уничтожает сессию: контроллеры получают onSessionDestroyed, binder умирает
func (s *Session) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	s.broadcast(opOnSessionDestroyed, nil)
	s.controllers.Kill()
	s.binder.Kill()
}

func (s *Session) broadcast(op string, args *binder.Bundle) {
	ctx := s.proc.Context(context.Background())
	for _, rc := range s.controllers.Snapshot() {
		if err := sendEvent(ctx, rc.Callback.b, ControllerCallbackDescriptor, op, args); err != nil {
			slog.Debug("platform.Session: callback is gone",
				slog.String("tag", s.tag),
				slog.String("op", op),
				slog.String("error", err.Error()))
		}
	}
}

// post выполняет fn в Looper callback сессии
func (s *Session) post(ctx context.Context, fn func(ctx context.Context, cb SessionCallback)) {
	s.mu.Lock()
	cb, h := s.callback, s.handler
	s.mu.Unlock()
	if cb == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	h.Post(func() { fn(ctx, cb) })
}

func (s *Session) onTransact(ctx context.Context, op string, args *binder.Bundle) (*binder.Bundle, error) {
	switch op {
	case opSendCommand:
		rr, _ := args.GetParcelable(keyReceiver).(*looper.ResultReceiver)
		command, cmdArgs := args.GetString(keyCommand), args.GetBundle(keyArgs)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnCommand(ctx, command, cmdArgs, rr) })
	case opDispatchMediaButton:
		ev, _ := args.GetParcelable(keyKeyEvent).(*media.KeyEvent)
		if ev == nil {
			return nil, errors.Wrap(binder.ErrIllegalArgument, "KeyEvent may not be null")
		}
		s.mu.Lock()
		handles := s.callback != nil
		s.mu.Unlock()
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnMediaButtonEvent(ctx, ev) })
		return bundleOf(keyHandled, handles), nil
	case opPrepare:
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPrepare(ctx) })
	case opPrepareFromMediaID:
		id, extras := args.GetString(keyMediaID), args.GetBundle(keyExtras)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPrepareFromMediaID(ctx, id, extras) })
	case opPrepareFromSearch:
		q, extras := args.GetString(keyQuery), args.GetBundle(keyExtras)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPrepareFromSearch(ctx, q, extras) })
	case opPrepareFromURI:
		uri, extras := args.GetString(keyURI), args.GetBundle(keyExtras)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPrepareFromURI(ctx, uri, extras) })
	case opPlay:
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPlay(ctx) })
	case opPlayFromMediaID:
		id, extras := args.GetString(keyMediaID), args.GetBundle(keyExtras)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPlayFromMediaID(ctx, id, extras) })
	case opPlayFromSearch:
		q, extras := args.GetString(keyQuery), args.GetBundle(keyExtras)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPlayFromSearch(ctx, q, extras) })
	case opPlayFromURI:
		uri, extras := args.GetString(keyURI), args.GetBundle(keyExtras)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPlayFromURI(ctx, uri, extras) })
	case opSkipToQueueItem:
		id := args.GetLong(keyID, media.UnknownID)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnSkipToQueueItem(ctx, id) })
	case opPause:
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnPause(ctx) })
	case opStop:
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnStop(ctx) })
	case opNext:
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnSkipToNext(ctx) })
	case opPrevious:
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnSkipToPrevious(ctx) })
	case opFastForward:
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnFastForward(ctx) })
	case opRewind:
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnRewind(ctx) })
	case opSeekTo:
		pos := args.GetLong(keyPosition, 0)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnSeekTo(ctx, pos) })
	case opRate:
		rating, _ := args.GetParcelable(keyRating).(*media.Rating)
		extras := args.GetBundle(keyExtras)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnSetRating(ctx, rating, extras) })
	case opSetPlaybackSpeed:
		if !s.sys.caps.NativePlaybackSpeed {
			return nil, errors.Wrap(binder.ErrUnsupportedOperation, "setPlaybackSpeed")
		}
		speed := args.GetFloat(keySpeed, 1)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnSetPlaybackSpeed(ctx, speed) })
	case opSendCustomAction:
		action, extras := args.GetString(keyAction), args.GetBundle(keyExtras)
		s.post(ctx, func(ctx context.Context, cb SessionCallback) { cb.OnCustomAction(ctx, action, extras) })
	case opAdjustVolume:
		s.AdjustVolume(args.GetInt(keyDirection, 0))
	case opSetVolumeTo:
		s.SetVolumeTo(args.GetInt(keyValue, 0))
	case opRegisterCallback:
		cb := args.GetBinder(keyCallback)
		if cb == nil {
			return nil, errors.Wrap(binder.ErrIllegalArgument, "callback may not be null")
		}
		s.controllers.Register(binderRef{b: cb}, binder.CallingIdentity(ctx))
	case opUnregisterCallback:
		if cb := args.GetBinder(keyCallback); cb != nil {
			s.controllers.Unregister(binderRef{b: cb})
		}
	default:
		return s.query(op)
	}
	return nil, nil
}

func (s *Session) query(op string) (*binder.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch op {
	case opGetPlaybackState:
		return bundleOf(keyState, s.state), nil
	case opGetMetadata:
		return bundleOf(keyMetadata, s.metadata), nil
	case opGetQueue:
		return bundleOf(keyQueue, queueToParcelables(s.queue)), nil
	case opGetQueueTitle:
		return bundleOf(keyTitle, s.queueTitle), nil
	case opGetExtras:
		return bundleOf(keyExtras, s.extras), nil
	case opGetFlags:
		return bundleOf(keyFlags, s.flags), nil
	case opGetRatingType:
		return bundleOf(keyRatingType, s.ratingType), nil
	case opGetPlaybackInfo:
		info := *s.volume
		return bundleOf(keyPlaybackInfo, &info), nil
	case opGetPackageName:
		return bundleOf(keyPackage, s.proc.Package), nil
	case opGetTag:
		return bundleOf(keyTag, s.tag), nil
	case opGetLaunchIntent:
		return bundleOf(keyLaunchIntent, s.launchIntent), nil
	case opGetSessionInfo:
		if !s.sys.caps.NativeSessionInfo {
			return nil, errors.Wrap(binder.ErrUnsupportedOperation, "getSessionInfo")
		}
		return bundleOf(keySessionInfo, s.sessionInfo), nil
	}
	return nil, errors.Wrapf(binder.ErrUnsupportedOperation, "unknown session operation %q", op)
}

// AdjustVolume меняет громкость на direction шагов или передает запрос провайдеру
func (s *Session) AdjustVolume(direction int) {
	s.mu.Lock()
	if p := s.volumeProvider; p != nil {
		s.mu.Unlock()
		p.OnAdjustVolume(direction)
		return
	}
	v := s.volume.CurrentVolume + direction
	s.volume.CurrentVolume = min(max(v, 0), s.volume.MaxVolume)
	info := *s.volume
	s.mu.Unlock()
	s.broadcast(opOnAudioInfo, bundleOf(keyPlaybackInfo, &info))
}

// SetVolumeTo устанавливает громкость или передает запрос провайдеру
func (s *Session) SetVolumeTo(value int) {
	s.mu.Lock()
	if p := s.volumeProvider; p != nil {
		s.mu.Unlock()
		p.OnSetVolumeTo(value)
		return
	}
	s.volume.CurrentVolume = min(max(value, 0), s.volume.MaxVolume)
	info := *s.volume
	s.mu.Unlock()
	s.broadcast(opOnAudioInfo, bundleOf(keyPlaybackInfo, &info))
}

func queueToParcelables(queue []*media.QueueItem) []binder.Parcelable {
	if queue == nil {
		return nil
	}
	out := make([]binder.Parcelable, 0, len(queue))
	for _, q := range queue {
		out = append(out, q)
	}
	return out
}

func queueFromParcelables(list []binder.Parcelable) []*media.QueueItem {
	if list == nil {
		return nil
	}
	out := make([]*media.QueueItem, 0, len(list))
	for _, p := range list {
		if q, ok := p.(*media.QueueItem); ok {
			out = append(out, q)
		}
	}
	return out
}
