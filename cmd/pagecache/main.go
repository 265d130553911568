package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jobala/pagecache/buffer"
	"github.com/jobala/pagecache/config"
	"github.com/jobala/pagecache/storage/disk"
	"github.com/jobala/pagecache/util"
)

// record is what the workload stores in each page.
type record struct {
	Page    int64  `msgpack:"page"`
	Payload string `msgpack:"payload"`
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	fileName := flag.String("file", "demo.db", "page file to run the workload against")
	numPages := flag.Int("pages", 256, "number of pages the workload writes and reads back")
	flag.Parse()

	if err := run(*configPath, *fileName, *numPages); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, fileName string, numPages int) error {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfigFromFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := util.NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	opts := cfg.DiskOptions()
	opts.Logger = logger
	diskMgr, err := disk.NewManager(cfg.DataDir, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := diskMgr.Close(); err != nil {
			logger.Error("closing page files", "err", err)
		}
	}()

	if err := diskMgr.CreateFile(fileName); err != nil && !errors.Is(err, disk.ErrFileExists) {
		return err
	}

	var store buffer.PageStore = diskMgr
	if cfg.AsyncIO {
		scheduler := disk.NewScheduler(diskMgr)
		defer scheduler.Close()
		store = scheduler
	}

	bpm, err := buffer.NewBufferpoolManager(cfg.PoolSize, store)
	if err != nil {
		return err
	}
	bpm.SetLogger(logger)

	logger.Info("buffer pool ready",
		"frames", bpm.PoolSize(),
		"capacity", humanize.IBytes(uint64(bpm.PoolSize())*disk.PAGE_SIZE),
		"data_dir", cfg.DataDir,
	)

	ids, err := writePages(bpm, fileName, numPages)
	if err != nil {
		return err
	}
	if err := readPages(bpm, fileName, ids); err != nil {
		return err
	}
	if err := bpm.FlushAllPages(); err != nil {
		return err
	}

	bpm.Stats().LogStats(logger)
	logger.Info("workload done",
		"pages", len(ids),
		"written", humanize.IBytes(uint64(len(ids))*disk.PAGE_SIZE),
	)
	return nil
}

func writePages(bpm *buffer.BufferpoolManager, fileName string, numPages int) ([]int64, error) {
	ids := make([]int64, 0, numPages)
	for i := range numPages {
		guard, err := bpm.NewPageGuarded(1, fileName)
		if err != nil {
			return ids, fmt.Errorf("allocating page %d: %w", i, err)
		}

		rec := record{Page: guard.PageId(), Payload: fmt.Sprintf("page %d of %s", guard.PageId(), fileName)}
		data, err := util.ToByteSlice(rec, disk.PAGE_SIZE)
		if err != nil {
			_ = guard.Drop()
			return ids, err
		}
		copy(guard.GetDataMut(), data)

		if err := guard.Drop(); err != nil {
			return ids, err
		}
		ids = append(ids, guard.PageId())
	}
	return ids, nil
}

func readPages(bpm *buffer.BufferpoolManager, fileName string, ids []int64) error {
	for _, id := range ids {
		guard, err := bpm.FetchPage(id, fileName)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", id, err)
		}

		rec, err := util.ToStruct[record](guard.GetData())
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		if err != nil {
			return fmt.Errorf("decoding page %d: %w", id, err)
		}
		if rec.Page != id {
			return fmt.Errorf("page %d holds record for page %d", id, rec.Page)
		}
	}
	return nil
}
