package pagination

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		in        Params
		wantPage  int
		wantLimit int
	}{
		{"defaults", Params{}, 1, DefaultLimit},
		{"zero page", Params{Page: 0, Limit: 10}, 1, 10},
		{"negative page", Params{Page: -3, Limit: 10}, 1, 10},
		{"limit capped", Params{Page: 2, Limit: 5000}, 2, MaxLimit},
		{"passthrough", Params{Page: 4, Limit: 50}, 4, 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Normalize()
			if got.Page != tc.wantPage || got.Limit != tc.wantLimit {
				t.Fatalf("Normalize() = %+v, want page=%d limit=%d", got, tc.wantPage, tc.wantLimit)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 1, Limit: 25}).Offset(); got != 0 {
		t.Fatalf("first page offset = %d", got)
	}
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("third page offset = %d", got)
	}
}

func TestTotalPages(t *testing.T) {
	if got := TotalPages(0, 25); got != 0 {
		t.Fatalf("empty set pages = %d", got)
	}
	if got := TotalPages(100, 25); got != 4 {
		t.Fatalf("exact fit pages = %d", got)
	}
	if got := TotalPages(101, 25); got != 5 {
		t.Fatalf("remainder pages = %d", got)
	}
}
