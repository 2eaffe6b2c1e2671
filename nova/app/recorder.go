package app

import (
	"context"

	"github.com/VeduStorm/NovaCore/nova/check"
	"github.com/VeduStorm/NovaCore/nova/db/dao"
	"github.com/VeduStorm/NovaCore/nova/model"
)

const DayLayout = "20060102"

// AuditRecorder queues each outcome into the day table of its check time.
func AuditRecorder(agg *dao.CheckLogAggregator) check.Recorder {
	return check.RecorderFunc(func(_ context.Context, r *check.Result) error {
		agg.AddCheckLogAsync(r.CheckedAt.Format(DayLayout), ToCheckLog(r))
		return nil
	})
}

func ToCheckLog(r *check.Result) model.CheckLog {
	l := model.CheckLog{
		Time:         r.CheckedAt.UnixMilli(),
		Mode:         r.Mode.String(),
		ConfigPath:   r.ConfigPath,
		Ok:           r.OK(),
		Mismatches:   len(r.Mismatches),
		MismatchText: r.MismatchText(),
		ErrorText:    r.Error,
	}
	if r.License != nil {
		l.Serial = r.License.Serial
		l.Product = r.License.Product
		l.Owner = r.License.Owner
	}
	return l
}
