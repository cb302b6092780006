package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/tornadohq/tornado/internal/actorsystem"
	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/matcher"
)

// matcherJob is one unit of work submitted to the MatcherPool. respond
// is non-nil for the synchronous preview path (ProcessEvent); nil jobs
// are dispatched to the bus by the actor itself once processed.
type matcherJob struct {
	ie              event.InternalEvent
	includeMetadata bool
	respond         chan matcher.ProcessedEvent
}

// matcherPool is N MatcherActors (§4.9/§5) sharing one immutable
// *matcher.Tree behind an atomic pointer: readers load it per job,
// Reconfigure swaps it after a successful compile. Each actor is a
// bounded Mailbox drained by a Supervisor-restarted goroutine.
type matcherPool struct {
	tree      *atomic.Pointer[matcher.Tree]
	mailboxes []*actorsystem.Mailbox[matcherJob]
	next      atomic.Uint64
	onResult  func(matcher.ProcessedEvent)
	logger    *slog.Logger
}

func newMatcherPool(
	size int,
	mailboxCapacity int,
	tree *atomic.Pointer[matcher.Tree],
	onResult func(matcher.ProcessedEvent),
	restartsPerSecond float64,
	restartBurst int,
	logger *slog.Logger,
) *matcherPool {
	if size <= 0 {
		size = 1
	}
	p := &matcherPool{tree: tree, onResult: onResult, logger: logger}
	p.mailboxes = make([]*actorsystem.Mailbox[matcherJob], size)
	for i := 0; i < size; i++ {
		mb := actorsystem.NewMailbox[matcherJob]("matcher", mailboxCapacity, logger)
		p.mailboxes[i] = mb
		sup := actorsystem.NewSupervisor("matcher-actor", p.actorTask(mb), rate.Limit(restartsPerSecond), restartBurst, logger)
		go sup.Run(context.Background())
	}
	return p
}

func (p *matcherPool) actorTask(mb *actorsystem.Mailbox[matcherJob]) actorsystem.Task {
	return func(ctx context.Context) error {
		mb.Run(ctx, func(job matcherJob) {
			tree := p.tree.Load()
			pe := tree.Process(job.ie, job.includeMetadata)
			if job.respond != nil {
				job.respond <- pe
			} else if p.onResult != nil {
				p.onResult(pe)
			}
		})
		return ctx.Err()
	}
}

// submit routes job to one of the pool's mailboxes round-robin, so
// independent events may be processed concurrently while each mailbox
// still serializes its own queue.
func (p *matcherPool) submit(job matcherJob) bool {
	idx := p.next.Add(1) % uint64(len(p.mailboxes))
	return p.mailboxes[idx].Send(job)
}
