package service

import (
	"context"
	"errors"

	"github-profile-miner/internal/domain"
	"github-profile-miner/internal/port"
)

// fanOut 把事件依次发给每个发布器，全部尝试后合并错误
type fanOut []port.EventPublisher

// FanOut 组合多个发布器，nil 会被忽略
func FanOut(publishers ...port.EventPublisher) port.EventPublisher {
	var f fanOut
	for _, p := range publishers {
		if p != nil {
			f = append(f, p)
		}
	}
	return f
}

func (f fanOut) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanOut) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
