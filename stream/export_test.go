package stream

// Sync blocks until every notification queued before the call has been
// delivered to the Sink. It returns at once after teardown.
func Sync(c *Controller) {
	ch := make(chan struct{})
	if c.queue.Post(func() { close(ch) }) {
		<-ch
	}
}

// SchedulerStopped reports whether the controller's scheduler was stopped.
func SchedulerStopped(c *Controller) bool {
	return c.scheduler.Stopped()
}

// SchedulerStarted reports whether the controller's scheduler was started.
func SchedulerStarted(c *Controller) bool {
	return c.scheduler.Started()
}
