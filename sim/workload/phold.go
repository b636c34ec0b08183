package workload

import "github.com/hostsim/hostsim/sim"

// pholdTask holds for an exponential delay, then forwards itself either to
// a uniformly chosen other host (with probability RemoteFraction) or back
// to its own host.
type pholdTask struct {
	g    *Generator
	host *hostStream
}

func (t *pholdTask) Run(wc *sim.WorkerContext) {
	done := t.g.enter(t.host, wc)
	defer done()

	dst := t.host
	n := len(t.g.hosts)
	if n > 1 && t.host.rng.Float64() < t.g.spec.RemoteFraction {
		i := t.host.rng.IntN(n - 1)
		if i >= int(t.host.id) {
			i++
		}
		dst = t.g.hosts[i]
	}
	t.g.send(wc, t.host, dst, t.g.drawDelay(t.host))
}
