// Package ingest connects the consistency handler to a telemetry stream.
//
// Readings arrive as JSON messages on a gocloud.dev pubsub subscription. The
// package exposes the consumption loop as component procs so a service
// assembly can supervise it: Stream for a single sequential consumer, Pool
// for a bounded concurrent one.
//
// The ack policy follows the handler's resubmission contract. A reading the
// handler rejected outright (malformed, class conflict) is acked: retrying
// it can never succeed. A reading the graph executor failed is nacked when
// the transport supports it, so the broker redelivers and the retry is safe
// because the failed attempt mutated nothing.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"

	"github.com/fleettwin/fleettwin"
)

// Stream returns a component.Proc that sequentially receives readings from
// the subscription and processes each through the handler.
func Stream(h *fleettwin.Handler, sub *pubsub.Subscription) component.Proc {
	return func(l *component.L) {
		for l.Continue() {
			msg, err := sub.Receive(l.Context())
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					// we're shutting down
					return
				}
				l.Fatal(fmt.Errorf("receive: %w", err))
			}
			if err := handleMessage(l.Context(), component.Logger(l.Context()), h, msg); err != nil {
				l.Fatal(fmt.Errorf("ingest: %w", err))
			}
		}
	}
}

// Pool returns a component.Proc that processes readings with up to workers
// concurrent handler invocations.
//
// Concurrency here is safe: the handler serialises readings per device and
// novel-class derivations globally, so a pool only parallelises across
// distinct devices.
func Pool(h *fleettwin.Handler, sub *pubsub.Subscription, workers int) component.Proc {
	if workers < 1 {
		panic("ingest: pool needs at least one worker")
	}
	return func(l *component.L) {
		g, ctx := errgroup.WithContext(l.Context())
		g.SetLimit(workers)
		for l.Continue() {
			msg, err := sub.Receive(ctx)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					break
				}
				_ = g.Wait()
				l.Fatal(fmt.Errorf("receive: %w", err))
			}
			g.Go(func() error {
				return handleMessage(ctx, component.Logger(ctx), h, msg)
			})
		}
		if err := g.Wait(); err != nil {
			l.Fatal(fmt.Errorf("ingest: %w", err))
		}
	}
}

// handleMessage processes one raw message through the handler and settles it
// with the broker. It returns an error only for faults that should stop the
// consumer; per-message rejections are logged and settled.
func handleMessage(ctx context.Context, logger *slog.Logger, h *fleettwin.Handler, msg *pubsub.Message) error {
	reading, err := fleettwin.ParseReading(msg.Body)
	if err != nil {
		// Malformed messages can never succeed on retry.
		logger.Warn("Rejected inbound message", "error", err)
		msg.Ack()
		return nil
	}

	d, err := h.Process(ctx, reading)
	var execErr *fleettwin.ExecutorFailure
	switch {
	case errors.As(err, &execErr):
		// Nothing was mutated, so redelivery retries the reading cleanly.
		logger.Error("Graph rejected reading, requeueing", "device", reading.DeviceUUID, "error", err)
		if msg.Nackable() {
			msg.Nack()
		} else {
			msg.Ack()
		}
		return nil
	case err != nil:
		// Terminal rejection (class conflict, malformed descriptor). The
		// reading is dropped; the established state stands.
		logger.Warn("Rejected reading", "device", reading.DeviceUUID, "error", err)
		msg.Ack()
		return nil
	}

	logger.Debug("Processed reading",
		"device", reading.DeviceUUID,
		"state", d.State.String(),
		"class", d.Class.Name,
	)
	msg.Ack()
	return nil
}
