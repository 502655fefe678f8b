package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
	xhttp "Quantra/pkg/http"
	applogger "Quantra/pkg/logger"
)

const klinesPageLimit = 1000

// BinanceKlines implements PriceSource over the Binance spot REST API.
type BinanceKlines struct {
	baseURL string
	client  *xhttp.Client
	l       *applogger.Logger
}

// NewBinanceKlines builds the source. baseURL defaults to the public API.
func NewBinanceKlines(baseURL string, timeout time.Duration, l *applogger.Logger) *BinanceKlines {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BinanceKlines{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:       l,
	}
}

// Klines pages through /api/v3/klines until the range or limit is covered.
func (b *BinanceKlines) Klines(ctx context.Context, symbol string, tf domrepo.Timeframe, from, to time.Time, limit int) ([]models.Candle, error) {
	interval, err := intervalForTF(tf)
	if err != nil {
		return nil, err
	}

	var out []models.Candle
	cursor := from
	for {
		page := klinesPageLimit
		if limit > 0 && limit-len(out) < page {
			page = limit - len(out)
		}
		if page <= 0 {
			break
		}

		var raw [][]interface{}
		err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    b.baseURL + "/api/v3/klines",
			QueryParams: map[string][]string{
				"symbol":    {symbol},
				"interval":  {interval},
				"startTime": {strconv.FormatInt(cursor.UnixMilli(), 10)},
				"endTime":   {strconv.FormatInt(to.UnixMilli(), 10)},
				"limit":     {strconv.Itoa(page)},
			},
		}, &raw)
		if err != nil {
			if b.l != nil {
				b.l.Error("binance klines request failed",
					applogger.String("symbol", symbol),
					applogger.String("interval", interval),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("%w: %v", models.ErrPriceUnavailable, err)
		}
		if len(raw) == 0 {
			break
		}

		for _, k := range raw {
			c, err := parseKline(symbol, k)
			if err != nil {
				return nil, fmt.Errorf("parse kline: %w", err)
			}
			out = append(out, c)
		}

		last := out[len(out)-1].Bucket
		if !last.Before(to) || len(raw) < page {
			break
		}
		cursor = last.Add(time.Millisecond)
	}
	return out, nil
}

// LastPrice hits /api/v3/ticker/price for the current mark.
func (b *BinanceKlines) LastPrice(ctx context.Context, symbol string) (float64, error) {
	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    b.baseURL + "/api/v3/ticker/price",
		QueryParams: map[string][]string{
			"symbol": {symbol},
		},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrPriceUnavailable, err)
	}
	p, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad price %q", models.ErrPriceUnavailable, resp.Price)
	}
	return p, nil
}

// parseKline decodes one row of the klines payload:
// [openTimeMs, open, high, low, close, volume, ...] with prices as strings.
func parseKline(symbol string, k []interface{}) (models.Candle, error) {
	var c models.Candle
	if len(k) < 6 {
		return c, fmt.Errorf("kline row too short: %d fields", len(k))
	}
	ms, ok := k[0].(float64)
	if !ok {
		return c, fmt.Errorf("kline open time is %T", k[0])
	}
	c.Bucket = time.UnixMilli(int64(ms)).UTC()
	c.Symbol = symbol

	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, dst := range fields {
		s, ok := k[i+1].(string)
		if !ok {
			return c, fmt.Errorf("kline field %d is %T", i+1, k[i+1])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		*dst = v
	}
	return c, nil
}

func intervalForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1h:
		return "1h", nil
	case domrepo.TF4h:
		return "4h", nil
	case domrepo.TF1d:
		return "1d", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}
