package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page *Page
		want bool
	}{
		{name: "nil page", page: nil, want: true},
		{name: "no content", page: &Page{URL: "http://quotes.toscrape.com/"}, want: true},
		{name: "whitespace html", page: &Page{HTML: " \n\t "}, want: true},
		{name: "html", page: &Page{HTML: "<html></html>"}, want: false},
		{name: "raw body", page: &Page{Body: []byte(`{"quotes":[]}`)}, want: false},
		{name: "capture without body", page: &Page{Captures: []Capture{{URL: "/api/quotes"}}}, want: true},
		{name: "capture with body", page: &Page{Captures: []Capture{{URL: "/api/quotes", Body: []byte("{}")}}}, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.page.Empty())
		})
	}
}
