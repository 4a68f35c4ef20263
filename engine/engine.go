package engine

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/njoroge/tembo/buffer"
	"github.com/njoroge/tembo/config"
	"github.com/njoroge/tembo/storage/disk"
)

// Engine wires the db file, disk manager, scheduler, replacer and
// bufferpool together from a config.
type Engine struct {
	file *os.File
	bpm  *buffer.BufferpoolManager
}

func Open(cfg *config.Config) (*Engine, error) {
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	file, err := os.OpenFile(cfg.DBFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file %s", cfg.DBFile)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "stat db file")
	}
	if info.Size() < disk.PAGE_SIZE {
		if err := file.Truncate(disk.PAGE_SIZE); err != nil {
			file.Close()
			return nil, errors.Wrap(err, "sizing db file")
		}
	}

	replacer := buffer.NewLruReplacer(cfg.PoolSize)
	diskMgr := disk.NewManager(file)
	scheduler := disk.NewScheduler(diskMgr)
	bpm := buffer.NewBufferpoolManager(cfg.PoolSize, replacer, scheduler)

	return &Engine{file: file, bpm: bpm}, nil
}

func (e *Engine) Bufferpool() *buffer.BufferpoolManager {
	return e.bpm
}

// Close writes every cached page back and releases the db file.
func (e *Engine) Close() error {
	e.bpm.FlushAll()
	return e.file.Close()
}
