package poller

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pixperk/chugsql/internal/source"
	"github.com/pixperk/chugsql/internal/tabular"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ExtractFunc reads rows whose delta column is past lastSeen, in delta order.
type ExtractFunc func(ctx context.Context, lastSeen string) (*tabular.Frame, error)

type PollConfig struct {
	Table     string
	DeltaCol  string
	Interval  time.Duration
	Limit     int
	StartFrom string
	// OnData receives each non-empty extraction. An error stops the poller:
	// a partly loaded frame cannot be replayed without duplicating rows.
	OnData func(ctx context.Context, data *tabular.Frame) error
	Logger *zap.Logger
}

type Poller struct {
	extract  ExtractFunc
	config   PollConfig
	log      *zap.Logger
	lastSeen string
}

// NewPoller polls config.Table through q.
func NewPoller(q source.Querier, config PollConfig) *Poller {
	extract := func(ctx context.Context, lastSeen string) (*tabular.Frame, error) {
		return source.ExtractSince(ctx, q, source.PGTable(config.Table), config.DeltaCol, lastSeen, config.Limit)
	}
	return NewPollerFunc(extract, config)
}

func NewPollerFunc(extract ExtractFunc, config PollConfig) *Poller {
	log := config.Logger
	if log == nil {
		log = zap.L()
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	return &Poller{
		extract:  extract,
		config:   config,
		log:      log.With(zap.String("table", config.Table)),
		lastSeen: config.StartFrom,
	}
}

// LastSeen is the cursor the next poll starts after.
func (p *Poller) LastSeen() string { return p.lastSeen }

// Start polls immediately and then on every interval until ctx is done or
// OnData fails.
func (p *Poller) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.log.Info("Starting poller",
		zap.Duration("interval", p.config.Interval),
		zap.String("last_seen", p.lastSeen))

	for {
		if _, err := p.Poll(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			p.log.Info("Stopping poller (context cancelled)")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one extraction and hands new rows to OnData. Extraction errors
// are logged and reported as zero rows; OnData errors are returned.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	p.log.Debug("Polling for new data", zap.String("last_seen", p.lastSeen))

	data, err := p.extract(ctx, p.lastSeen)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		p.log.Error("Failed to extract table data", zap.Error(err))
		return 0, nil
	}
	if data.Len() == 0 {
		p.log.Debug("No new data found", zap.String("last_seen", p.lastSeen))
		return 0, nil
	}

	next, err := lastCursor(data, p.config.DeltaCol)
	if err != nil {
		return 0, err
	}

	p.log.Info("New data extracted",
		zap.Int("rows", data.Len()),
		zap.String("last_seen", next))

	if err := p.config.OnData(ctx, data); err != nil {
		return 0, errors.Wrapf(err, "process rows after %q", p.lastSeen)
	}
	p.lastSeen = next
	return data.Len(), nil
}

func lastCursor(data *tabular.Frame, deltaCol string) (string, error) {
	for _, col := range data.Columns {
		if col.Name == deltaCol {
			v := col.Values[len(col.Values)-1]
			if tabular.IsMissing(v) {
				return "", errors.Errorf("delta column %q is null in the last row", deltaCol)
			}
			return FormatCursor(v), nil
		}
	}
	return "", errors.Errorf("delta column %q not in extracted columns", deltaCol)
}

// FormatCursor renders a delta column value so Postgres can cast it back to
// the column type.
func FormatCursor(v any) string {
	switch x := v.(type) {
	case time.Time:
		// the offset is ignored when cast to timestamp without time zone
		return x.Format("2006-01-02 15:04:05.999999-07:00")
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		return fmt.Sprintf("%d", x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	}
	return fmt.Sprint(v)
}
