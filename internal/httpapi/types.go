package httpapi

import (
	"berza/internal/domain"
)

const dateFormat = "2006-01-02"

// pricePoint is the wire form of one daily history row. Absent values are
// serialized as JSON null.
type pricePoint struct {
	Date           string   `json:"date"`
	LastTradePrice *float64 `json:"last_trade_price"`
	Max            *float64 `json:"max"`
	Min            *float64 `json:"min"`
	Volume         *float64 `json:"volume"`
	Turnover       *float64 `json:"turnover"`
}

func toPricePoint(p domain.PricePoint) pricePoint {
	return pricePoint{
		Date:           p.TradeDate.Format(dateFormat),
		LastTradePrice: p.LastTradePrice,
		Max:            p.Max,
		Min:            p.Min,
		Volume:         p.Volume,
		Turnover:       p.Turnover,
	}
}

type pricesResponse struct {
	Code   string       `json:"code"`
	Points []pricePoint `json:"points"`
}

// indicatorRow is the wire form of one computed indicator row.
type indicatorRow struct {
	Code      string   `json:"code"`
	Date      string   `json:"date"`
	Period    string   `json:"period"`
	Signal    string   `json:"signal"`
	SMA20     *float64 `json:"sma_20"`
	SMA50     *float64 `json:"sma_50"`
	EMA20     *float64 `json:"ema_20"`
	EMA50     *float64 `json:"ema_50"`
	RSI       *float64 `json:"rsi"`
	MACD      *float64 `json:"macd"`
	Stoch     *float64 `json:"stoch"`
	CCI       *float64 `json:"cci"`
	WilliamsR *float64 `json:"williams_r"`
}

func toIndicatorRow(r domain.IndicatorRow) indicatorRow {
	return indicatorRow{
		Code:      r.Code,
		Date:      r.Date.Format(dateFormat),
		Period:    r.Period,
		Signal:    r.Signal,
		SMA20:     r.SMA20,
		SMA50:     r.SMA50,
		EMA20:     r.EMA20,
		EMA50:     r.EMA50,
		RSI:       r.RSI,
		MACD:      r.MACD,
		Stoch:     r.Stoch,
		CCI:       r.CCI,
		WilliamsR: r.WilliamsR,
	}
}

type securitiesResponse struct {
	Codes []string `json:"codes"`
}

type jobResponse struct {
	Status string `json:"status"`
}
