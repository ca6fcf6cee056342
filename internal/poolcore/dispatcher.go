package poolcore

import (
	"context"
	"sync/atomic"
	"time"
)

// dispatchLoop drains the wait queue whenever a session becomes available,
// providing forward progress independent of release-driven hand-offs. It
// polls on dispatcherPollInterval and exits once stopCh is closed.
func (p *Pool) dispatchLoop() {
	defer p.doneWG.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		ticket, ok := p.popWaitTicket()
		if !ok {
			select {
			case <-p.stopCh:
				return
			case <-time.After(dispatcherPollInterval):
			}
			continue
		}

		sess, acquired := p.tryAcquireNow(context.Background())
		if !acquired {
			p.requeueFront(ticket)
			select {
			case <-p.stopCh:
				return
			case <-time.After(dispatcherPollInterval):
			}
			continue
		}

		atomic.AddInt32(&p.waitN, -1)
		atomic.AddInt32(&p.active, 1)
		p.reportGauges()
		ticket.result <- acquireResult{session: sess}
	}
}

// requeueFront puts a ticket the dispatcher could not immediately satisfy
// back at the head of the wait queue, preserving FIFO order for the
// tickets behind it.
func (p *Pool) requeueFront(t *waitTicket) {
	p.waitMu.Lock()
	defer p.waitMu.Unlock()
	p.wait = append([]*waitTicket{t}, p.wait...)
}
