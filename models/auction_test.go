package models

import (
	"encoding/json"
	"testing"
)

func TestYearUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Year
		wantErr bool
	}{
		{name: "number", input: `2016`, want: 2016},
		{name: "legacy string", input: `"2016"`, want: 2016},
		{name: "null", input: `null`, want: 0},
		{name: "empty string", input: `""`, want: 0},
		{name: "heading text", input: `"Upcoming"`, want: 0},
		{name: "year inside text", input: `"2016 Auctions"`, want: 2016},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var y Year
			err := json.Unmarshal([]byte(tt.input), &y)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unmarshal %s: err=%v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && y != tt.want {
				t.Fatalf("year=%d, want %d", y, tt.want)
			}
		})
	}
}

func TestYearMarshalUnresolvedAsNull(t *testing.T) {
	data, err := json.Marshal(struct {
		Year Year `json:"year"`
	}{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"year":null}` {
		t.Fatalf("got %s", data)
	}
}

func TestApplyDefaultsDerivesStatus(t *testing.T) {
	tests := []struct {
		name   string
		record AuctionRecord
		want   Status
	}{
		{
			name:   "legacy with lots",
			record: AuctionRecord{URL: "u", Lots: []LotRecord{{URL: "l", Price: "$1"}}},
			want:   StatusCompletedWithLots,
		},
		{
			name:   "legacy without lots",
			record: AuctionRecord{URL: "u"},
			want:   StatusPending,
		},
		{
			name:   "completed empty kept",
			record: AuctionRecord{URL: "u", Status: StatusCompletedEmpty},
			want:   StatusCompletedEmpty,
		},
		{
			name:   "inconsistent with lots status",
			record: AuctionRecord{URL: "u", Status: StatusCompletedWithLots},
			want:   StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.record
			rec.ApplyDefaults()
			if rec.Status != tt.want {
				t.Fatalf("status=%q, want %q", rec.Status, tt.want)
			}
			if rec.Lots == nil {
				t.Fatalf("lots should never be nil after defaults")
			}
			if rec.SaleTotal != NoSaleTotal || rec.Location != NoLocation {
				t.Fatalf("sentinels not applied: %+v", rec)
			}
		})
	}
}
