package util

import (
	"database/sql"
	"testing"
)

func TestNullString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want sql.NullString
	}{
		{name: "empty string is null", in: "", want: sql.NullString{}},
		{name: "non-empty string is valid", in: "ACKr", want: sql.NullString{String: "ACKr", Valid: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NullString(tt.in); got != tt.want {
				t.Errorf("NullString(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNullStringToPtr(t *testing.T) {
	if got := NullStringToPtr(sql.NullString{}); got != nil {
		t.Errorf("NullStringToPtr(invalid) = %v, want nil", got)
	}
	got := NullStringToPtr(sql.NullString{String: "lb", Valid: true})
	if got == nil || *got != "lb" {
		t.Errorf("NullStringToPtr(valid) = %v, want lb", got)
	}
}

func TestNullFloat64(t *testing.T) {
	if got := NullFloat64(nil); got.Valid {
		t.Errorf("NullFloat64(nil) = %+v, want invalid", got)
	}
	v := -4.5
	got := NullFloat64(&v)
	if !got.Valid || got.Float64 != -4.5 {
		t.Errorf("NullFloat64(&v) = %+v, want -4.5", got)
	}
}

func TestNullFloat64ToPtr(t *testing.T) {
	if got := NullFloat64ToPtr(sql.NullFloat64{}); got != nil {
		t.Errorf("NullFloat64ToPtr(invalid) = %v, want nil", got)
	}
	got := NullFloat64ToPtr(sql.NullFloat64{Float64: 8.25, Valid: true})
	if got == nil || *got != 8.25 {
		t.Errorf("NullFloat64ToPtr(valid) = %v, want 8.25", got)
	}
}

func TestBoolToInt64(t *testing.T) {
	if got := BoolToInt64(true); got != 1 {
		t.Errorf("BoolToInt64(true) = %d, want 1", got)
	}
	if got := BoolToInt64(false); got != 0 {
		t.Errorf("BoolToInt64(false) = %d, want 0", got)
	}
}
