package detector

import (
	"strings"
	"testing"

	"github.com/kidzout/harvester/internal/harvester"
)

func TestShouldPromote(t *testing.T) {
	t.Parallel()
	d := NewHeuristic(0)

	filler := strings.Repeat("<p>Veranstaltungen für Familien in München</p>", 100)

	tests := []struct {
		name string
		resp harvester.FetchResponse
		want bool
	}{
		{
			name: "empty body triggers",
			resp: harvester.FetchResponse{StatusCode: 200},
			want: true,
		},
		{
			name: "spa root marker triggers",
			resp: harvester.FetchResponse{StatusCode: 200, Body: []byte(`<html><body><div id="root"></div></body></html>`)},
			want: true,
		},
		{
			name: "small script-heavy body triggers",
			resp: harvester.FetchResponse{StatusCode: 200, Body: []byte(`<html><script>window.load(1)</script><p>hi</p></html>`)},
			want: true,
		},
		{
			name: "regular content page passes",
			resp: harvester.FetchResponse{StatusCode: 200, Body: []byte("<html><body>" + filler + "</body></html>")},
			want: false,
		},
		{
			name: "already rendered never promotes",
			resp: harvester.FetchResponse{StatusCode: 200, Rendered: true},
			want: false,
		},
		{
			name: "non-200 never promotes",
			resp: harvester.FetchResponse{StatusCode: 404},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.ShouldPromote(tt.resp)
			if got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}
