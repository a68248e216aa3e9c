package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

func TestResolvePages(t *testing.T) {
	const current = "https://shop.test/en/Cuba/Cohiba"

	tests := []struct {
		name  string
		pager []plugin.LinkRef
		want  []string
	}{
		{
			name: "drops forward control",
			pager: []plugin.LinkRef{
				{Label: "2", URL: "/p2"},
				{Label: "next page", URL: "/p2"},
			},
			want: []string{"/p2"},
		},
		{
			name: "forward control with whitespace",
			pager: []plugin.LinkRef{
				{Label: " next page ", URL: "/p3"},
				{Label: "2", URL: "/p2"},
			},
			want: []string{"/p2"},
		},
		{
			name: "dedupes and skips current page",
			pager: []plugin.LinkRef{
				{Label: "1", URL: current},
				{Label: "2", URL: "/p2"},
				{Label: "3", URL: "/p3"},
				{Label: "2", URL: "/p2"},
			},
			want: []string{"/p2", "/p3"},
		},
		{
			name:  "no pager",
			pager: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePages(tt.pager, current))
		})
	}
}

func TestIsForwardNavigationLink(t *testing.T) {
	assert.True(t, isForwardNavigationLink(plugin.LinkRef{Label: "next page"}))
	assert.False(t, isForwardNavigationLink(plugin.LinkRef{Label: "Next Page"}))
	assert.False(t, isForwardNavigationLink(plugin.LinkRef{Label: "2"}))
}
