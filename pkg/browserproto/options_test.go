package browserproto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arzzra/media_compat/pkg/binder"
)

func children(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}

func TestApplyOptions(t *testing.T) {
	list := children(5)

	tests := []struct {
		name     string
		options  *binder.Bundle
		expected []string
	}{
		{"без параметров", nil, list},
		{"пустые options", binder.NewBundle(), list},
		{"первая страница", PageOptions(0, 2), []string{"a", "b"}},
		{"вторая страница", PageOptions(1, 2), []string{"c", "d"}},
		{"неполная последняя страница", PageOptions(2, 2), []string{"e"}},
		{"страница за концом", PageOptions(3, 2), []string{}},
		{"отрицательная страница", PageOptions(-2, 2), []string{}},
		{"нулевой размер", PageOptions(0, 0), []string{}},
		{"размер больше списка", PageOptions(0, 10), list},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ApplyOptions(list, tt.options))
		})
	}
}

func TestApplyOptions_MatchesWindowFormula(t *testing.T) {
	for n := 0; n <= 6; n++ {
		list := children(n)
		for page := -1; page <= 7; page++ {
			for size := 0; size <= 7; size++ {
				got := ApplyOptions(list, PageOptions(page, size))
				from := page * size
				if page < 0 || size < 1 || from >= n {
					assert.Empty(t, got, "n=%d page=%d size=%d", n, page, size)
					continue
				}
				to := min(n, from+size)
				assert.Equal(t, list[from:to], got, "n=%d page=%d size=%d", n, page, size)
			}
		}
	}
}

func TestApplyOptions_NilList(t *testing.T) {
	assert.Nil(t, ApplyOptions[string](nil, PageOptions(0, 2)))
}

func TestAreSameOptions(t *testing.T) {
	other := binder.NewBundle()
	other.PutString("unrelated", "x")

	assert.True(t, AreSameOptions(nil, nil))
	assert.True(t, AreSameOptions(nil, other), "options без страниц равны nil")
	assert.True(t, AreSameOptions(other, nil))
	assert.True(t, AreSameOptions(PageOptions(1, 3), PageOptions(1, 3)), "сравнение по содержимому")
	assert.False(t, AreSameOptions(PageOptions(1, 3), PageOptions(2, 3)))
	assert.False(t, AreSameOptions(nil, PageOptions(0, 3)))
}

func TestHasDuplicatedItems(t *testing.T) {
	assert.True(t, HasDuplicatedItems(nil, PageOptions(4, 10)))
	assert.True(t, HasDuplicatedItems(PageOptions(0, 4), PageOptions(1, 2)))
	assert.False(t, HasDuplicatedItems(PageOptions(0, 2), PageOptions(1, 2)))
	assert.True(t, HasDuplicatedItems(PageOptions(1, 3), PageOptions(0, 4)))
}

func TestMsgNames(t *testing.T) {
	assert.Equal(t, "add_subscription", ClientMsgName(ClientMsgAddSubscription))
	assert.Equal(t, "on_load_children", ServiceMsgName(ServiceMsgOnLoadChildren))
	assert.Equal(t, "unknown", ClientMsgName(42))
}
