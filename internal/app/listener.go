package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/itsuki2003/todaibansou-admin/internal/notify"
)

const changeChannel = "schedule_changes"

// Listener bridges Postgres NOTIFY events into the in-process broker, so a
// mutation committed by any process reaches every subscribed UI session.
// The triggers installed by the migrations send the table name as payload.
type Listener struct {
	pool     *pgxpool.Pool
	broker   *notify.Broker
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewListener(pool *pgxpool.Pool, broker *notify.Broker, logger *zap.Logger) *Listener {
	return &Listener{
		pool:     pool,
		broker:   broker,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (l *Listener) Start(ctx context.Context) {
	l.logger.Info("Starting change-notification listener")
	go l.run(ctx)
}

func (l *Listener) Stop() {
	l.logger.Info("Stopping change-notification listener")
	close(l.stopChan)
}

func (l *Listener) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-l.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				l.logger.Info("Change-notification listener stopped")
				return
			}
			l.logger.Error("Listener connection lost, reconnecting", zap.Error(err))
		}

		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			l.logger.Info("Change-notification listener stopped")
			return
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		table := notify.Table(notification.Payload)
		switch table {
		case notify.TableLessonSlots, notify.TableAbsenceRequests, notify.TableAdditionalRequests:
			l.broker.Publish(table)
		default:
			l.logger.Warn("Notification for unknown table", zap.String("payload", notification.Payload))
		}
	}
}
