package report

import (
	"encoding/json"
	"fmt"
	"time"

	"main/internal/errors"
	"main/pkg/conn"
)

// LogRow is the persisted shape of one recorder row.
type LogRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Run        string `gorm:"index:idx_run_log"`
	Log        string `gorm:"index:idx_run_log"`
	Seq        int
	SimTime    int64
	Data       string
	ExportedAt time.Time
}

func (LogRow) TableName() string {
	return "backtest_logs"
}

// ExportPG writes every recorder log to Postgres under the given run
// label. The table is migrated on first use.
func ExportPG(client *conn.Client, run string, rec *Recorder) error {
	db := client.DB()
	if db == nil {
		return errors.New("report: nil postgres client")
	}
	if err := db.AutoMigrate(&LogRow{}); err != nil {
		return errors.Wrap(err, "migrate backtest_logs")
	}

	now := time.Now().UTC()
	logs := rec.Export()
	for _, key := range rec.Keys() {
		rows := logs[key]
		batch := make([]LogRow, 0, len(rows))
		for i, row := range rows {
			data, err := json.Marshal(row.Data)
			if err != nil {
				return errors.Wrapf(err, "marshal log=%s seq=%d", key, i)
			}
			batch = append(batch, LogRow{
				Run:        run,
				Log:        key,
				Seq:        i,
				SimTime:    row.Time,
				Data:       string(data),
				ExportedAt: now,
			})
		}
		if len(batch) == 0 {
			continue
		}
		if err := db.CreateInBatches(batch, 500).Error; err != nil {
			return errors.Wrap(err, fmt.Sprintf("insert log=%s rows=%d", key, len(batch)))
		}
	}
	return nil
}
