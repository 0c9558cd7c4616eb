package handoff_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tahsin716/handoff"
)

func ExampleBoundedQueue() {
	q, err := handoff.NewBoundedQueue[string](2)
	if err != nil {
		panic(err)
	}

	go func() {
		defer q.Complete()
		for _, s := range []string{"a", "b", "c"} {
			if err := q.Add(s); err != nil {
				return
			}
		}
	}()

	for {
		s, err := q.Take()
		if errors.Is(err, handoff.ErrQueueDrained) {
			break
		}
		fmt.Println(s)
	}
	// Output:
	// a
	// b
	// c
}

func ExampleBoundedQueue_AddTimeout() {
	q, _ := handoff.NewBoundedQueue[int](1)
	_ = q.Add(1)

	err := q.AddTimeout(2, 10*time.Millisecond)
	fmt.Println(handoff.IsRetryable(err), q.Count())
	// Output: true 1
}

func ExampleCounter() {
	var hits handoff.Counter
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits.Increment()
		}()
	}
	wg.Wait()
	fmt.Println(hits.Load())
	// Output: 10
}

// Two accounts are debited and credited under both locks. The two
// goroutines name the accounts in opposite order without deadlocking.
func ExampleLockSet_Do() {
	ls := handoff.NewLockSet()
	type account struct {
		h       *handoff.Handle
		balance int
	}
	alice := &account{h: ls.NewHandle("alice"), balance: 100}
	bob := &account{h: ls.NewHandle("bob"), balance: 100}

	move := func(from, to *account, amount int) {
		_ = ls.Do(context.Background(), []*handoff.Handle{from.h, to.h}, func() error {
			from.balance -= amount
			to.balance += amount
			return nil
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			move(alice, bob, 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			move(bob, alice, 1)
		}
	}()
	wg.Wait()

	fmt.Println(alice.balance+bob.balance, alice.balance, bob.balance)
	// Output: 200 100 100
}

func ExampleTransfer() {
	ls := handoff.NewLockSet()
	inbox, _ := handoff.NewBoundedQueue[string](4, handoff.WithHandle(ls.NewHandle("inbox")))
	done, _ := handoff.NewBoundedQueue[string](4, handoff.WithHandle(ls.NewHandle("done")))

	_ = inbox.Add("job-1")
	_ = inbox.Add("job-2")
	_ = handoff.Transfer(context.Background(), ls, inbox, done)

	fmt.Println(inbox.Snapshot(), done.Snapshot())
	// Output: [job-2] [job-1]
}
