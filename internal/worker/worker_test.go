package worker_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/trigger/internal/queue"
	"basegraph.app/trigger/internal/worker"
)

var _ = Describe("Worker", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("ProcessMessage", func() {
		It("acks a processed message", func() {
			consumer := &mockConsumer{}
			w := worker.New(consumer, func(context.Context, queue.Message) error { return nil }, worker.Config{})

			Expect(w.ProcessMessage(ctx, queue.Message{ID: "1-0"})).To(Succeed())
			Expect(consumer.Acked()).To(Equal([]string{"1-0"}))
		})

		It("does not ack a failed message", func() {
			consumer := &mockConsumer{}
			w := worker.New(consumer, func(context.Context, queue.Message) error { return errors.New("boom") }, worker.Config{})

			Expect(w.ProcessMessage(ctx, queue.Message{ID: "1-0"})).To(MatchError("boom"))
			Expect(consumer.Acked()).To(BeEmpty())
		})

		It("turns a panic into an error", func() {
			consumer := &mockConsumer{}
			w := worker.New(consumer, func(context.Context, queue.Message) error { panic("nil build") }, worker.Config{})

			Expect(w.ProcessMessage(ctx, queue.Message{ID: "1-0"})).To(MatchError(ContainSubstring("panic: nil build")))
		})
	})

	Describe("Run", func() {
		It("requeues failures below the attempt limit and dead-letters the rest", func() {
			consumer := &mockConsumer{batches: [][]queue.Message{{
				{ID: "1-0", Attempt: 1},
				{ID: "2-0", Attempt: 3},
				{ID: "3-0", Attempt: 1, BuildID: 7},
			}}}
			w := worker.New(consumer, func(_ context.Context, msg queue.Message) error {
				if msg.BuildID == 7 {
					return nil
				}
				return errors.New("store down")
			}, worker.Config{MaxAttempts: 3})

			done := make(chan error, 1)
			go func() { done <- w.Run(ctx) }()

			Eventually(consumer.Acked).Should(Equal([]string{"3-0"}))
			w.Stop()
			Eventually(done).Should(Receive(BeNil()))

			consumer.mu.Lock()
			defer consumer.mu.Unlock()
			Expect(consumer.requeued).To(Equal([]string{"1-0"}))
			Expect(consumer.dlq).To(Equal([]string{"2-0"}))
		})

		It("returns when the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			w := worker.New(&mockConsumer{}, func(context.Context, queue.Message) error { return nil }, worker.Config{})

			done := make(chan error, 1)
			go func() { done <- w.Run(cctx) }()
			cancel()

			Eventually(done, time.Second).Should(Receive(MatchError(context.Canceled)))
		})
	})
})
