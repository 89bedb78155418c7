package controller

import (
	"log"
	"time"
)

// Start launches the tick loop: a fixed polling interval plus a once-daily
// boundary timer at local midnight. Both triggers funnel into the same
// mutex, so cycles never interleave.
func (c *Controller) Start(interval time.Duration) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.loop(interval)
}

// Stop halts the loop and writes a final snapshot.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	done := c.done
	c.mu.Unlock()

	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.save(); err != nil {
		log.Printf("saving final snapshot: %v", err)
	}
}

func (c *Controller) loop(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	midnight := time.NewTimer(untilMidnight(time.Now()))
	defer midnight.Stop()

	for {
		select {
		case <-c.stopCh:
			return

		case now := <-ticker.C:
			if err := c.Tick(now); err != nil {
				log.Printf("decision cycle failed: %v", err)
			}

		case now := <-midnight.C:
			if err := c.MidnightReset(now); err != nil {
				log.Printf("midnight reset cycle failed: %v", err)
			}
			midnight.Reset(untilMidnight(time.Now()))
		}
	}
}

// untilMidnight returns the duration to the next local midnight.
func untilMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}
