package main

import (
	"context"
	"flag"
	"log"

	"main/internal/backtest"
	"main/internal/histdata"
	"main/internal/model"
	"main/internal/ops"
	"main/internal/report"
	"main/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON run config")
	profileAddr := flag.String("profile", "", "Pyroscope server address (empty=off)")
	pgDSN := flag.String("pg-dsn", "", "Postgres DSN for result export (overrides config)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("missing -config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		cancel()
	}()

	if *profileAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "backtest",
			ServerAddress:   *profileAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	drv := backtest.New(loaded.Broker)
	client := drv.Broker().Client()
	if loaded.Deposit.IsPositive() {
		if err := client.Deposit("USDT", loaded.Deposit); err != nil {
			log.Fatalf("deposit failed: %v", err)
		}
	}
	if loaded.Strategy != nil {
		if err := loaded.Strategy.Init(client); err != nil {
			log.Fatalf("strategy %s init failed: %v", loaded.Strategy.Name(), err)
		}
		logs.Infof("strategy %s attached to account %d", loaded.Strategy.Name(), client.ID())
	}

	if err := loadData(drv, loaded); err != nil {
		log.Fatalf("data load failed: %v", err)
	}

	out, err := drv.Run(ctx)
	if err != nil {
		log.Fatalf("run %s failed: %v", loaded.Run, err)
	}
	for _, key := range drv.Recorder().Keys() {
		logs.Infof("run %s: log %s rows=%d", loaded.Run, key, len(out[key]))
	}

	if err := exportResults(loaded, *pgDSN, drv.Recorder()); err != nil {
		log.Fatalf("export failed: %v", err)
	}
}

func loadData(drv *backtest.Driver, loaded ops.Loaded) error {
	for _, tf := range loaded.Trades {
		market, err := ops.ParseMarket(tf.Market)
		if err != nil {
			return err
		}
		raw, err := histdata.LoadTrades(tf.Path)
		if err != nil {
			return err
		}
		ticks := histdata.ResampleTrades(tf.Symbol, raw)
		drv.AddTicks(market, ticks)
		logs.Infof("loaded %d trades (%d ticks) for %s from %s", len(raw), len(ticks), tf.Symbol, tf.Path)
	}
	for _, kf := range loaded.Klines {
		market, err := ops.ParseMarket(kf.Market)
		if err != nil {
			return err
		}
		klines, err := histdata.LoadKlines(kf.Path, kf.Symbol, model.Interval(kf.Interval))
		if err != nil {
			return err
		}
		drv.AddBars(market, klines)
		logs.Infof("loaded %d klines for %s %s from %s", len(klines), kf.Symbol, kf.Interval, kf.Path)
	}
	return nil
}

func exportResults(loaded ops.Loaded, dsn string, rec *report.Recorder) error {
	var (
		client *conn.Client
		err    error
	)
	switch {
	case dsn != "":
		client, err = conn.OpenDSN(dsn)
	case loaded.Postgres != nil:
		client, err = conn.Open(*loaded.Postgres)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := report.ExportPG(client, loaded.Run, rec); err != nil {
		return err
	}
	logs.Infof("run %s exported to postgres", loaded.Run)
	return nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
