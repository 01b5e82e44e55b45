package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ttn-nguyen42/deferq"
	"github.com/ttn-nguyen42/deferq/internal/broker"
	"github.com/ttn-nguyen42/deferq/internal/task"
)

func main() {
	opts, err := deferq.LoadOptions()
	if err != nil {
		slog.Error("failed to load options", "err", err)
		os.Exit(1)
	}

	opts.Logger = slog.New(slog.NewTextHandler(
		os.Stdout,
		&slog.HandlerOptions{
			Level: opts.LogLevel,
		},
	))
	slog.SetDefault(opts.Logger)

	dq, err := deferq.New(opts)
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		os.Interrupt,
	)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- dq.Run(context.Background())
	}()

	br, err := dq.Broker()
	if err != nil {
		slog.Error("failed to get broker", "err", err)
		os.Exit(1)
	}
	submitDemo(br)
	br.Close()

	// with the server enabled, keep accepting tasks over HTTP until signaled
	if !opts.DisableServer {
		<-ctx.Done()
	}
	dq.Close()

	if err := <-done; err != nil {
		os.Exit(1)
	}
}

func submit(br broker.Broker, t *task.Task) {
	if _, err := br.Submit(t); err != nil {
		slog.
			With("task_name", t.Name()).
			With("err", err).
			Warn("demo task was not submitted")
	}
}

func submitDemo(br broker.Broker) {
	submit(br, task.NewDontExpire(func() {
		slog.Info("-> executing task without expiration")
	}, task.WithName("no-expiry")))

	submit(br, task.New(time.Second, func() {
		slog.Info("-> starting task with a 1-second expiration, sleeping for 2 seconds")
		time.Sleep(2 * time.Second)
		slog.Info("-> completed task after sleep")
	}, task.WithName("slow")))

	submit(br, task.NewDontExpire(func() {
		slog.Info("-> executing another task without expiration")
	}, task.WithName("no-expiry-2")))

	// this one is likely expired by the time the slow task is done
	submit(br, task.New(500*time.Millisecond, func() {
		slog.Info("-> executing short-lived task")
	}, task.WithName("short-lived")))

	clone, err := br.Clone()
	if err != nil {
		slog.With("err", err).Warn("failed to clone broker")
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		submit(clone, task.New(5*time.Second, func() {
			slog.Info("-> executing task from another goroutine")
		}, task.WithName("from-goroutine")))
		clone.Close()

		// the handle is closed, so this reports a disconnect
		submit(clone, task.NewDontExpire(func() {
			slog.Info("-> never runs")
		}, task.WithName("after-close")))
	}()
	wg.Wait()
}
