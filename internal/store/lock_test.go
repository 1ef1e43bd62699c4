package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("KeyedMutex", func() {
	var (
		ctx   context.Context
		mutex *KeyedMutex
	)

	BeforeEach(func() {
		ctx = context.Background()
		mutex = NewKeyedMutex()
	})

	It("serializes holders of the same key", func() {
		var (
			wg      sync.WaitGroup
			inside  atomic.Int32
			maxSeen atomic.Int32
		)

		for range 20 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()

				unlock, err := mutex.Lock(ctx, "U1:D1")
				Expect(err).NotTo(HaveOccurred())
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				unlock()
			}()
		}
		wg.Wait()

		Expect(maxSeen.Load()).To(Equal(int32(1)))
		Expect(mutex.size()).To(BeZero())
	})

	It("does not block different keys", func() {
		unlock, err := mutex.Lock(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		defer unlock()

		other, err := mutex.Lock(ctx, "b")
		Expect(err).NotTo(HaveOccurred())
		other()
	})

	It("gives up when the context ends", func() {
		unlock, err := mutex.Lock(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		defer unlock()

		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err = mutex.Lock(short, "a")
		Expect(errors.Is(err, ErrLockTimeout)).To(BeTrue())
	})

	It("tolerates a double unlock", func() {
		unlock, err := mutex.Lock(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		unlock()
		unlock()

		again, err := mutex.Lock(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		again()
		Expect(mutex.size()).To(BeZero())
	})
})

var _ = Describe("NewNopOutcomeStore", func() {
	It("accepts and forgets outcomes", func() {
		outcomes := NewNopOutcomeStore()
		Expect(outcomes.Record(context.Background(), nil)).To(Succeed())
		list, err := outcomes.ListByUser(context.Background(), "U1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(BeEmpty())
	})
})
