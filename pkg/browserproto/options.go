package browserproto

import (
	"math"

	"github.com/arzzra/media_compat/pkg/binder"
)

// Page возвращает номер и размер страницы; -1, если параметр не задан
func Page(options *binder.Bundle) (page, pageSize int) {
	return options.GetInt(ExtraPage, -1), options.GetInt(ExtraPageSize, -1)
}

// PageOptions создает options для страницы page размера pageSize
func PageOptions(page, pageSize int) *binder.Bundle {
	b := binder.NewBundle()
	b.PutInt(ExtraPage, page)
	b.PutInt(ExtraPageSize, pageSize)
	return b
}

// AreSameOptions сравнивает options подписок по параметрам страницы.
// nil равен только nil или options без параметров страницы.
func AreSameOptions(a, b *binder.Bundle) bool {
	if a == b {
		return true
	}
	if a == nil {
		return b.GetInt(ExtraPage, -1) == -1 && b.GetInt(ExtraPageSize, -1) == -1
	}
	if b == nil {
		return a.GetInt(ExtraPage, -1) == -1 && a.GetInt(ExtraPageSize, -1) == -1
	}
	pa, sa := Page(a)
	pb, sb := Page(b)
	return pa == pb && sa == sb
}

// HasDuplicatedItems сообщает, пересекаются ли окна двух подписок.
// Подписка без страниц покрывает весь список и пересекается с любой.
func HasDuplicatedItems(a, b *binder.Bundle) bool {
	startA, endA := window(a)
	startB, endB := window(b)
	return endA >= startB && endB >= startA
}

func window(options *binder.Bundle) (start, end int) {
	page, pageSize := Page(options)
	if page == -1 || pageSize == -1 {
		return 0, math.MaxInt
	}
	start = pageSize * page
	return start, start + pageSize - 1
}

// ApplyOptions вырезает из полного списка окно страницы.
//
// Без параметров страницы список возвращается как есть. Окно за концом списка,
// отрицательная страница и размер меньше 1 дают пустой список; окно, выходящее
// за конец, обрезается до доступного остатка.
func ApplyOptions[T any](list []T, options *binder.Bundle) []T {
	if list == nil {
		return nil
	}
	page, pageSize := Page(options)
	if page == -1 && pageSize == -1 {
		return list
	}
	if page < 0 || pageSize < 1 {
		return []T{}
	}
	from := pageSize * page
	if from >= len(list) || from < 0 {
		return []T{}
	}
	to := from + pageSize
	if to > len(list) || to < from {
		to = len(list)
	}
	return list[from:to]
}
