package scavenger

import (
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		source   Source
		wantName string
		wantErr  bool
	}{
		{name: "default", source: "", wantName: "api"},
		{name: "api", source: SourceAPI, wantName: "api"},
		{name: "page", source: SourcePage, wantName: "page"},
		{name: "auto", source: SourceAuto, wantName: "api+page"},
		{name: "unknown", source: "rss", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.source, "", "")
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if got.TVS.Name() != tt.wantName {
				t.Errorf("New() fetcher = %v, want %v", got.TVS.Name(), tt.wantName)
			}
		})
	}
}
