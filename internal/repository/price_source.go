package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	xhttp "TradePulse/pkg/http"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

// ErrNoBars is returned when the price API answers without usable bars.
var ErrNoBars = errors.New("no bars returned")

// PriceAPISource polls the upstream price API for minute bars.
type PriceAPISource struct {
	client        *xhttp.Client
	baseURL       string
	tokenID       int
	interval      domrepo.Timeframe
	latestMinutes int
	now           func() time.Time
	l             *applogger.Logger
}

// PriceAPIConfig configures PriceAPISource.
type PriceAPIConfig struct {
	BaseURL       string
	TokenID       int
	Interval      string
	LatestMinutes int
	Timeout       time.Duration
	RPS           float64
}

func NewPriceAPISource(cfg PriceAPIConfig, l *applogger.Logger) *PriceAPISource {
	if cfg.LatestMinutes <= 0 {
		cfg.LatestMinutes = 2
	}
	return &PriceAPISource{
		client:        xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithRateLimit(cfg.RPS, 1)),
		baseURL:       cfg.BaseURL,
		tokenID:       cfg.TokenID,
		interval:      domrepo.NormalizeTimeframe(cfg.Interval),
		latestMinutes: cfg.LatestMinutes,
		now:           time.Now,
		l:             l,
	}
}

// FetchHistorical returns the bars of the last `minutes` minutes, oldest first.
func (s *PriceAPISource) FetchHistorical(ctx context.Context, minutes int) ([]models.Bar, error) {
	from, to := util.MinuteRange(s.now().UTC(), minutes)
	return s.fetch(ctx, from, to)
}

// FetchLatest returns the newest bar of a short recent range.
func (s *PriceAPISource) FetchLatest(ctx context.Context) (*models.Bar, error) {
	from, to := util.MinuteRange(s.now().UTC(), s.latestMinutes)
	bars, err := s.fetch(ctx, from, to.Add(s.interval.Duration()))
	if err != nil {
		return nil, err
	}
	b := bars[len(bars)-1]
	return &b, nil
}

func (s *PriceAPISource) fetch(ctx context.Context, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	var body []byte
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/Prices/getinterval",
		QueryParams: map[string][]string{
			"tokenId":   {strconv.Itoa(s.tokenID)},
			"interval":  {string(s.interval)},
			"startTime": {strconv.FormatInt(from.Unix(), 10)},
			"endTime":   {strconv.FormatInt(to.Unix(), 10)},
		},
	}, &body)
	if err != nil {
		s.l.Error("price api request failed", applogger.String("stage", "source"), applogger.Error(err))
		return nil, fmt.Errorf("get interval: %w", err)
	}
	bars, skipped := ParseBars(body)
	if skipped > 0 {
		s.l.Warn("price api returned malformed bars",
			applogger.String("stage", "source"), applogger.Int("skipped", skipped))
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	s.l.Debug("price api ok",
		applogger.String("stage", "source"),
		applogger.Int("bars", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return bars, nil
}

// ParseBars reads {"data": [{time, open, high, low, close, volumeTo}]} and
// returns the bars sorted by time. Entries without a timestamp, or with a
// missing or non-positive open, high, low or close, are skipped.
func ParseBars(body []byte) ([]models.Bar, int) {
	items := gjson.GetBytes(body, "data").Array()
	bars := make([]models.Bar, 0, len(items))
	skipped := 0
	for _, it := range items {
		ts, ok := util.ParseTime(it.Get("time").String())
		if !ok {
			skipped++
			continue
		}
		var ohlc [4]float64
		for i, key := range [4]string{"open", "high", "low", "close"} {
			v := it.Get(key)
			if !v.Exists() || v.Float() <= 0 {
				ok = false
				break
			}
			ohlc[i] = v.Float()
		}
		if !ok {
			skipped++
			continue
		}
		vol := it.Get("volumeTo")
		if !vol.Exists() {
			vol = it.Get("volume")
		}
		bars = append(bars, models.Bar{
			Time:   ts,
			Open:   ohlc[0],
			High:   ohlc[1],
			Low:    ohlc[2],
			Close:  ohlc[3],
			Volume: vol.Float(),
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, skipped
}

var _ domrepo.BarSource = (*PriceAPISource)(nil)
