package poolcore

import (
	"sync/atomic"
	"time"
)

// evictLoop runs a periodic scan (period cfg.IdleTimeout) of the idle set,
// closing and removing entries that have been idle longer than
// cfg.IdleTimeout as long as doing so keeps total at or above the pool's
// current floor (p.min, which SetTargetMin can change after construction).
// Active sessions are never touched.
func (p *Pool) evictLoop() {
	defer p.doneWG.Done()

	if p.cfg.IdleTimeout <= 0 {
		<-p.stopCh
		return
	}

	ticker := time.NewTicker(p.cfg.IdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.evictExpired()
		}
	}
}

func (p *Pool) evictExpired() {
	now := time.Now()

	for {
		if int(atomic.LoadInt32(&p.total)) <= int(atomic.LoadInt32(&p.min)) {
			return
		}

		p.idleMu.Lock()
		victimIdx := -1
		for i, e := range p.idle {
			if now.Sub(e.lastUsed) > p.cfg.IdleTimeout {
				victimIdx = i
				break
			}
		}
		if victimIdx < 0 {
			p.idleMu.Unlock()
			return
		}
		victim := p.idle[victimIdx]
		p.idle = append(p.idle[:victimIdx], p.idle[victimIdx+1:]...)
		p.idleMu.Unlock()

		if err := victim.session.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("closing evicted idle session")
		}
		atomic.AddInt32(&p.total, -1)
		p.cfg.Metrics.IncEviction()
		p.reportGauges()
	}
}
