package utils

import "testing"

func TestMergeLabel(t *testing.T) {
	tests := []struct {
		name     string
		existing Label
		incoming Label
		want     Label
	}{
		{
			name:     "both present",
			existing: Label{Value: "a", Source: "recall"},
			incoming: Label{Value: "b", Source: "filter"},
			want:     Label{Value: "a|b", Source: "recall,filter"},
		},
		{
			name:     "existing empty",
			existing: Label{},
			incoming: Label{Value: "b", Source: "filter"},
			want:     Label{Value: "b", Source: "filter"},
		},
		{
			name:     "incoming empty",
			existing: Label{Value: "a", Source: "recall"},
			incoming: Label{},
			want:     Label{Value: "a", Source: "recall"},
		},
		{
			name:     "incoming without source",
			existing: Label{Value: "a", Source: "recall"},
			incoming: Label{Value: "b"},
			want:     Label{Value: "a|b", Source: "recall"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeLabel(tt.existing, tt.incoming); got != tt.want {
				t.Errorf("MergeLabel() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
