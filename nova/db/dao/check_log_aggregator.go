package dao

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/VeduStorm/NovaCore/nova/common/logx"
	"github.com/VeduStorm/NovaCore/nova/model"
)

var aggLog = logx.New(logx.WithPrefix("dao.check_log_aggregator"))

// CheckLogAggregator batches audit rows into per-day tables, strictly FIFO.
type CheckLogAggregator struct {
	db         *gorm.DB
	driver     string
	tableFunc  func(day string) string
	ensure     func(day string) error
	flushEvery time.Duration
	maxBatch   int
	maxBacklog int // failed rows kept for retry; oldest dropped beyond this

	dropped atomic.Int64

	inCh   chan logItem
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ensuredDays sync.Map // day -> struct{}
	sf          singleflight.Group
}

type logItem struct {
	day string
	log model.CheckLog
}

func NewCheckLogAggregator(
	db *gorm.DB, driver string,
	tableFunc func(day string) string,
	ensureTable func(day string) error,
	flushEvery time.Duration, maxBatch int,
) *CheckLogAggregator {
	if flushEvery <= 0 {
		flushEvery = time.Second
	}
	if maxBatch <= 0 {
		maxBatch = 200
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &CheckLogAggregator{
		db:         db,
		driver:     strings.ToLower(driver),
		tableFunc:  tableFunc,
		ensure:     ensureTable,
		flushEvery: flushEvery,
		maxBatch:   maxBatch,
		maxBacklog: maxBatch * 10,
		inCh:       make(chan logItem, maxBatch),
		ctx:        ctx,
		cancel:     cancel,
	}
	aggLog.Debugf("init flushEvery=%v maxBatch=%d driver=%s", a.flushEvery, a.maxBatch, a.driver)
	return a
}

// SetMaxBacklog caps how many failed rows are kept for retry. Call before Start.
func (a *CheckLogAggregator) SetMaxBacklog(n int) {
	if n > 0 {
		a.maxBacklog = n
	}
}

// Dropped counts rows discarded because the retry backlog was full.
func (a *CheckLogAggregator) Dropped() int64 { return a.dropped.Load() }

func (a *CheckLogAggregator) Start() {
	a.wg.Add(1)
	go a.worker()
}

// Shutdown flushes what is buffered and stops the worker.
func (a *CheckLogAggregator) Shutdown() {
	a.cancel()
	a.wg.Wait()
	aggLog.Debugf("shutdown done")
}

// AddCheckLogAsync queues one row. Table creation is attempted up front and retried on flush.
func (a *CheckLogAggregator) AddCheckLogAsync(day string, l model.CheckLog) {
	if err := a.ensureOnce(day); err != nil {
		aggLog.Debugf("ensure pre-add failed day=%s err=%v (will retry in flush)", day, err)
	}
	select {
	case <-a.ctx.Done():
		aggLog.Warnf("aggregator closed, dropping check log serial=%s", l.Serial)
	case a.inCh <- logItem{day: day, log: l}:
	}
}

func (a *CheckLogAggregator) worker() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.flushEvery)
	defer ticker.Stop()

	buf := make([]logItem, 0, a.maxBatch)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		// group by day, keeping first-seen day order
		byDay := make(map[string][]model.CheckLog, 2)
		order := make([]string, 0, 2)
		for _, it := range buf {
			if _, ok := byDay[it.day]; !ok {
				order = append(order, it.day)
			}
			byDay[it.day] = append(byDay[it.day], it.log)
		}

		next := make([]logItem, 0)
		for _, day := range order {
			logs := byDay[day]
			err := a.ensureOnce(day)
			if err == nil {
				err = a.batchInsert(day, logs)
			}
			if err != nil {
				aggLog.Warnf("flush day=%s failed: %v (retry next flush, count=%d)", day, err, len(logs))
				for _, l := range logs {
					next = append(next, logItem{day: day, log: l})
				}
				continue
			}
			aggLog.Debugf("batch inserted day=%s count=%d", day, len(logs))
		}
		if over := len(next) - a.maxBacklog; over > 0 {
			a.dropped.Add(int64(over))
			aggLog.Errorf("retry backlog full (max=%d), dropping %d oldest check log(s), first day=%s serial=%s",
				a.maxBacklog, over, next[0].day, next[0].log.Serial)
			next = next[over:]
		}
		buf = append(buf[:0], next...)
	}

	for {
		select {
		case <-a.ctx.Done():
			// drain whatever made it into the channel before the cancel
			for {
				select {
				case it := <-a.inCh:
					buf = append(buf, it)
					continue
				default:
				}
				break
			}
			flush()
			if len(buf) > 0 {
				aggLog.Errorf("drop %d pending check log(s) on shutdown", len(buf))
			}
			return

		case it := <-a.inCh:
			buf = append(buf, it)
			if len(buf) >= a.maxBatch {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

func (a *CheckLogAggregator) ensureOnce(day string) error {
	if _, ok := a.ensuredDays.Load(day); ok {
		return nil
	}
	_, err, _ := a.sf.Do(day, func() (any, error) {
		if _, ok := a.ensuredDays.Load(day); ok {
			return nil, nil
		}
		if err := a.ensure(day); err != nil {
			return nil, err
		}
		a.ensuredDays.Store(day, struct{}{})
		return nil, nil
	})
	return err
}

func (a *CheckLogAggregator) batchInsert(day string, logs []model.CheckLog) error {
	if len(logs) == 0 {
		return nil
	}
	tbl := a.tableFunc(day)
	if a.driver == "mysql" {
		tbl = "`" + tbl + "`"
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(tbl)
	sb.WriteString(" (time,mode,config_path,serial,product,owner,ok,mismatches,mismatch_text,error_text) VALUES ")
	args := make([]any, 0, len(logs)*10)
	for i, l := range logs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?)")
		args = append(args, l.Time, l.Mode, l.ConfigPath, l.Serial, l.Product, l.Owner, l.Ok, l.Mismatches, l.MismatchText, l.ErrorText)
	}
	return a.db.Exec(sb.String(), args...).Error
}
