package main

import (
	"context"
	"io"
	"os"

	"github-profile-miner/internal/adapter/enricher"
	"github-profile-miner/internal/adapter/feishu"
	githubadapter "github-profile-miner/internal/adapter/github"
	"github-profile-miner/internal/adapter/kafka"
	"github-profile-miner/internal/adapter/repository"
	"github-profile-miner/internal/common"
	"github-profile-miner/internal/config"
	"github-profile-miner/internal/port"
	"github-profile-miner/internal/service"

	"github.com/charmbracelet/log"
)

// app 命令之间共享的状态，PersistentPreRunE 中初始化
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *log.Logger

	out    io.Writer
	errOut *os.File
}

func newApp(out io.Writer, errOut *os.File) *app {
	return &app{out: out, errOut: errOut}
}

// setup 加载配置并创建日志器
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.cfg = cfg
	a.logger = common.NewLogger(a.errOut, level)
	return nil
}

// wire 组装 ProfileService，返回的 cleanup 负责关闭数据库和消息队列
func (a *app) wire(ctx context.Context) (*service.ProfileService, func(), error) {
	store, err := repository.Open(ctx, a.cfg.Database, a.logger)
	if err != nil {
		return nil, nil, err
	}

	client, err := githubadapter.NewClient(a.cfg.GitHub, a.logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	var publishers []port.EventPublisher
	if a.cfg.HasKafka() {
		publisher, err := kafka.NewPublisher(a.cfg.Kafka, a.logger)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		publishers = append(publishers, publisher)
	}
	if a.cfg.HasFeishu() {
		publishers = append(publishers, feishu.NewNotifier(a.cfg.Notify.FeishuWebhook, a.cfg.Notify.ProfileURL, a.logger))
	}
	var events port.EventPublisher = kafka.Discard{}
	if len(publishers) > 0 {
		events = service.FanOut(publishers...)
	}

	svc := service.NewProfileService(client, enricher.NewBioEnricher(), store, events, a.logger)
	cleanup := func() {
		if err := events.Close(); err != nil {
			a.logger.Warn("close event publisher failed", "err", err)
		}
		if err := store.Close(); err != nil {
			a.logger.Warn("close database failed", "err", err)
		}
	}
	return svc, cleanup, nil
}
