package browserservice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/arzzra/media_compat/pkg/binder"
	"github.com/arzzra/media_compat/pkg/media"
	"github.com/arzzra/media_compat/pkg/platform"
)

// Root корень дерева, который сервис отдает клиенту
type Root struct {
	RootID string
	Extras *binder.Bundle
}

// Callbacks логика сервиса браузера, которую реализует приложение.
// Все методы вызываются в Looper сервиса.
type Callbacks interface {
	// OnGetRoot возвращает nil, если клиенту отказано в подключении
	OnGetRoot(ctx context.Context, clientPackage string, clientUID int, rootHints *binder.Bundle) *Root
	// OnLoadChildren отдает полный список детей parentID. Параметры страницы
	// сервис применяет сам.
	OnLoadChildren(ctx context.Context, parentID string, result *platform.Result[[]*media.MediaItem])
}

// OptionsLoader реализуют Callbacks, которые сами учитывают options подписки
type OptionsLoader interface {
	OnLoadChildrenWithOptions(ctx context.Context, parentID string, options *binder.Bundle, result *platform.Result[[]*media.MediaItem])
}

// ItemLoader загрузка одного элемента. Без него getItem завершается ошибкой.
type ItemLoader interface {
	OnLoadItem(ctx context.Context, itemID string, result *platform.Result[*media.MediaItem])
}

// Searcher поиск. Без него search завершается ошибкой.
type Searcher interface {
	OnSearch(ctx context.Context, query string, extras *binder.Bundle, result *platform.Result[[]*media.MediaItem])
}

// CustomActionHandler пользовательские действия. Без него действие завершается ошибкой.
type CustomActionHandler interface {
	OnCustomAction(ctx context.Context, action string, extras *binder.Bundle, result *CustomActionResult)
}

// CustomActionResult ответ на пользовательское действие.
//
// Промежуточные результаты можно отправлять, пока не отправлен окончательный.
// Окончательный результат (SendResult или SendError) отправляется один раз.
type CustomActionResult struct {
	action   string
	progress func(data *binder.Bundle)
	send     func(ok bool, data *binder.Bundle)

	mu       sync.Mutex
	detached bool
	done     bool
}

func newCustomActionResult(action string, progress func(*binder.Bundle), send func(bool, *binder.Bundle)) *CustomActionResult {
	return &CustomActionResult{action: action, progress: progress, send: send}
}

// SendProgressUpdate отправляет промежуточный результат
func (r *CustomActionResult) SendProgressUpdate(data *binder.Bundle) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done {
		slog.Error("CustomActionResult: sendProgressUpdate() called when result was already sent",
			slog.String("action", r.action))
		return
	}
	r.progress(data)
}

func (r *CustomActionResult) SendResult(data *binder.Bundle) {
	if r.finish("sendResult") {
		r.send(true, data)
	}
}

func (r *CustomActionResult) SendError(data *binder.Bundle) {
	if r.finish("sendError") {
		r.send(false, data)
	}
}

// Detach откладывает отправку результата
func (r *CustomActionResult) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached = true
}

func (r *CustomActionResult) finish(method string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		slog.Error("CustomActionResult: "+method+"() called when result was already sent",
			slog.String("action", r.action))
		return false
	}
	r.done = true
	return true
}

func (r *CustomActionResult) checkCompleted() {
	r.mu.Lock()
	pending := !r.done && !r.detached
	r.mu.Unlock()
	if pending {
		slog.Error("CustomActionResult: onCustomAction must call detach() or sendResult() before returning",
			slog.String("action", r.action))
		r.SendError(nil)
	}
}
