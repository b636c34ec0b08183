package workload

import "github.com/hostsim/hostsim/sim"

// ringTask passes a token to the next host in id order after MeanDelay.
// With a single host the token loops back to itself.
type ringTask struct {
	g    *Generator
	host *hostStream
}

func (t *ringTask) Run(wc *sim.WorkerContext) {
	done := t.g.enter(t.host, wc)
	defer done()

	next := t.g.hosts[(int(t.host.id)+1)%len(t.g.hosts)]
	t.g.send(wc, t.host, next, sim.SimTime(t.g.spec.MeanDelay.Nanoseconds()))
}
