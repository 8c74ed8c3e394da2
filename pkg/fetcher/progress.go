package fetcher

import (
	"io"
	"time"

	"github.com/docker/go-units"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func humanSize(n int64) string {
	return units.HumanSize(float64(n))
}

// progressReporter logs the progress of a download at regular intervals
type progressReporter struct {
	l        *zap.Logger
	total    int64
	reader   io.Reader
	read     int64
	start    time.Time
	throttle *rate.Sometimes
}

func newProgressReporter(logger *zap.Logger, total int64, interval time.Duration) *progressReporter {
	p := &progressReporter{
		l:     logger,
		total: total,
		start: time.Now(),
	}
	if interval > 0 {
		p.throttle = &rate.Sometimes{Interval: interval}
	}
	return p
}

func (p *progressReporter) wrap(rdr io.Reader) io.Reader {
	p.reader = rdr
	return p
}

func (p *progressReporter) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	p.read += int64(n)
	if p.throttle != nil && n > 0 {
		p.throttle.Do(func() {
			p.report("download in progress", p.read)
		})
	}
	return n, err
}

func (p *progressReporter) done(n int64) {
	p.report("download complete", n)
}

func (p *progressReporter) report(msg string, n int64) {
	fields := []zap.Field{
		zap.String("downloaded", humanSize(n)),
		zap.String("rate", transferRate(n, time.Since(p.start))),
	}
	if p.total > 0 {
		fields = append(fields,
			zap.String("total", humanSize(p.total)),
			zap.Float64("percent", float64(100*n)/float64(p.total)),
		)
	}
	p.l.Info(msg, fields...)
}

func transferRate(n int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "n/a"
	}
	return units.HumanSize(float64(n)/elapsed.Seconds()) + "/s"
}
