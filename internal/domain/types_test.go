package domain

import (
	"testing"
	"time"
)

func TestComplete(t *testing.T) {
	full := PricePoint{
		Code:           "ALK",
		TradeDate:      Day(time.Now()),
		LastTradePrice: Float(15200),
		Max:            Float(15300),
		Min:            Float(15100),
	}
	if !full.Complete() {
		t.Error("point with last/max/min set should be complete")
	}

	// Missing any of the three required fields makes the row incomplete,
	// even when everything else is present.
	noLast := full
	noLast.LastTradePrice = nil
	noLast.Volume = Float(120)
	noLast.Turnover = Float(1824000)
	if noLast.Complete() {
		t.Error("point without last trade price should be incomplete")
	}

	noMax := full
	noMax.Max = nil
	if noMax.Complete() {
		t.Error("point without max should be incomplete")
	}

	noMin := full
	noMin.Min = nil
	if noMin.Complete() {
		t.Error("point without min should be incomplete")
	}
}

func TestCompleteZeroIsNotAbsent(t *testing.T) {
	p := PricePoint{
		Code:           "TEL",
		LastTradePrice: Float(0),
		Max:            Float(0),
		Min:            Float(0),
	}
	if !p.Complete() {
		t.Error("zero values are present values, not absent ones")
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2024, 3, 15, 23, 45, 12, 999, loc)
	got := Day(in)

	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Day() = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("Day() location = %v, want UTC", got.Location())
	}
}

func TestFetchErrorString(t *testing.T) {
	e := FetchError{Code: "KMB", Message: "no data retrieved"}
	if got := e.String(); got != "KMB: no data retrieved" {
		t.Errorf("String() = %q", got)
	}
}
