package browserservice

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/browserproto"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
)

// nativeCallbacks обслуживает клиентов через нативный сервис платформы.
// Клиенту протокола в дополнительные данные корня добавляется messenger сервиса.
type nativeCallbacks struct {
	s *Service
}

var _ platform.BrowserServiceCallbacks = (*nativeCallbacks)(nil)

func (n *nativeCallbacks) OnGetRoot(ctx context.Context, clientPackage string, clientUID int, rootHints *binder.Bundle) *platform.BrowserRoot {
	s := n.s
	hints := rootHints.Copy()
	clientVersion := hints.GetInt(browserproto.ExtraClientVersion, 0)
	pid := hints.GetInt(browserproto.ExtraCallingPID, binder.CallingIdentity(ctx).PID)
	if clientVersion != 0 {
		hints.Remove(browserproto.ExtraClientVersion)
		hints.Remove(browserproto.ExtraCallingPID)
	}

	conn := &connection{
		id:        uuid.New(),
		pkg:       clientPackage,
		pid:       pid,
		uid:       clientUID,
		rootHints: hints,
	}
	root := s.getRoot(ctx, conn)
	if root == nil {
		return nil
	}

	extras := binder.NewBundle()
	if clientVersion != 0 {
		extras.PutInt(browserproto.ExtraServiceVersion, browserproto.ServiceVersionCurrent)
		extras.PutBinder(browserproto.ExtraMessengerBinder, s.messenger.Binder())
		if token := s.SessionToken(); token != nil {
			if extra := token.ExtraBinder(); extra != nil {
				extras.PutBinder(browserproto.ExtraSessionBinder, extra.AsBinder())
			}
		}
		conn.root = root
		s.mu.Lock()
		kept := s.pending[:0]
		for _, p := range s.pending {
			if p.pkg != conn.pkg || p.uid != conn.uid {
				kept = append(kept, p)
			}
		}
		s.pending = append(kept, conn)
		s.mu.Unlock()
		s.log.Debug("Service.OnGetRoot: protocol client",
			slog.String("package", clientPackage),
			slog.Int("client_version", clientVersion))
	}
	extras.PutAll(root.Extras)
	return &platform.BrowserRoot{RootID: root.RootID, Extras: extras}
}

func (n *nativeCallbacks) OnLoadChildren(ctx context.Context, parentID string, options *binder.Bundle, result *platform.Result[[]*media.MediaItem]) {
	s := n.s
	_, handlesOptions := s.callbacks.(OptionsLoader)
	paged := options != nil && !handlesOptions

	inner := platform.NewResult(parentID, func(items []*media.MediaItem, ok bool) {
		if !ok {
			result.SendError()
			return
		}
		if paged {
			items = browserproto.ApplyOptions(items, options)
		}
		result.SendResult(items)
	})
	if l, ok := s.callbacks.(OptionsLoader); ok && options != nil {
		l.OnLoadChildrenWithOptions(ctx, parentID, options, inner)
	} else {
		s.callbacks.OnLoadChildren(ctx, parentID, inner)
	}
	if inner.IsDetached() && !inner.IsDone() {
		result.Detach()
		return
	}
	inner.CheckCompleted()
}

func (n *nativeCallbacks) OnLoadItem(ctx context.Context, itemID string, result *platform.Result[*media.MediaItem]) {
	loader, ok := n.s.callbacks.(ItemLoader)
	if !ok {
		result.SendError()
		return
	}
	loader.OnLoadItem(ctx, itemID, result)
}
