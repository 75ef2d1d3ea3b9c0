package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mosync/config"
)

func TestEndpointsResolve(t *testing.T) {
	tests := []struct {
		name string
		eps  Endpoints
		kind Kind
		want string
	}{
		{name: "nothing configured", eps: Endpoints{}, kind: KindActive, want: ""},
		{name: "blank specific and fallback", eps: Endpoints{Active: "  ", Fallback: " "}, kind: KindActive, want: ""},
		{name: "specific active", eps: Endpoints{Active: "https://a.example/in", Fallback: "https://f.example/API"}, kind: KindActive, want: "https://a.example/in"},
		{name: "active from fallback", eps: Endpoints{Fallback: "https://f.example/API"}, kind: KindActive, want: "https://f.example/API/manufacturing"},
		{name: "active fallback strips query and test", eps: Endpoints{Fallback: "https://f.example/API/test?x=1"}, kind: KindActive, want: "https://f.example/API/manufacturing"},
		{name: "active fallback already has manufacturing", eps: Endpoints{Fallback: "https://f.example/api/manufacturing"}, kind: KindActive, want: "https://f.example/api/manufacturing"},
		{name: "completed from fallback", eps: Endpoints{Fallback: "https://f.example/API/?q=2"}, kind: KindCompleted, want: "https://f.example/API"},
		{name: "specific completed", eps: Endpoints{Completed: "https://c.example/done"}, kind: KindCompleted, want: "https://c.example/done"},
		{name: "list uses fallback verbatim", eps: Endpoints{Fallback: "https://f.example/API"}, kind: KindList, want: "https://f.example/API"},
		{name: "specific list", eps: Endpoints{List: "https://l.example/mo", Fallback: "https://f.example/API"}, kind: KindList, want: "https://l.example/mo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eps.Resolve(tt.kind))
		})
	}
}

func TestEndpointsFromConfig(t *testing.T) {
	eps := EndpointsFromConfig(config.DeliveryConfig{URL: "u", ActiveURL: "a", CompletedURL: "c", ListURL: "l"})
	assert.Equal(t, Endpoints{Fallback: "u", Active: "a", Completed: "c", List: "l"}, eps)
}

func TestPageListAndTargetQty(t *testing.T) {
	q := 12.9
	neg := -3.7
	assert.Equal(t, 12, TargetQty(&q))
	assert.Equal(t, -3, TargetQty(&neg))
	assert.Equal(t, 0, TargetQty(nil))

	items := make([]ListItem, 5)
	pages := PageList(items, 2)
	assert.Len(t, pages, 3)
	assert.Len(t, pages[2].MOList, 1)
	assert.Len(t, PageList(items, 0), 1)
	assert.Empty(t, PageList(nil, 10))
}
