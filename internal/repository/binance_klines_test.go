package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
)

func TestParseKline(t *testing.T) {
	row := []interface{}{
		float64(1700000000000), "100.5", "101.0", "99.5", "100.8", "1234.5",
		float64(1700003599999),
	}
	c, err := parseKline("BTCUSDT", row)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Open != 100.5 || c.High != 101.0 || c.Low != 99.5 || c.Close != 100.8 || c.Volume != 1234.5 {
		t.Fatalf("bad candle %+v", c)
	}
	if c.Bucket.UnixMilli() != 1700000000000 {
		t.Fatalf("bad bucket %v", c.Bucket)
	}
}

func TestParseKlineShortRow(t *testing.T) {
	if _, err := parseKline("BTCUSDT", []interface{}{float64(1)}); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestKlinesAndLastPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/klines":
			if r.URL.Query().Get("symbol") != "BTCUSDT" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `[[1700000000000,"100","101","99","100.5","10",1700003599999],
                            [1700003600000,"100.5","102","100","101.5","12",1700007199999]]`)
		case "/api/v3/ticker/price":
			fmt.Fprint(w, `{"symbol":"BTCUSDT","price":"101.25"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := NewBinanceKlines(srv.URL, time.Second, nil)
	from := time.UnixMilli(1700000000000)
	to := time.UnixMilli(1700007200000)
	candles, err := src.Klines(context.Background(), "BTCUSDT", domrepo.TF1h, from, to, 0)
	if err != nil {
		t.Fatalf("klines: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[1].Close != 101.5 {
		t.Fatalf("bad close %v", candles[1].Close)
	}

	p, err := src.LastPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("last price: %v", err)
	}
	if p != 101.25 {
		t.Fatalf("bad price %v", p)
	}
}

func TestKlinesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	src := NewBinanceKlines(srv.URL, time.Second, nil)
	_, err := src.Klines(context.Background(), "BTCUSDT", domrepo.TF1d, time.Now().Add(-time.Hour), time.Now(), 0)
	if !errors.Is(err, models.ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}
