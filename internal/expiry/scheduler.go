// Package expiry implements the single long-lived expiry worker described
// in spec §4.B: it alternates between waiting for the poll timer (or an
// external wakeup) and processing a scan of the Flow Table.
package expiry

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"flowexporter/internal/flow"
	"flowexporter/internal/ipfix"
)

// DefaultPollPeriod is the default scheduler wakeup interval, spec §4.B.
const DefaultPollPeriod = 10 * time.Second

// Egress is the opaque egress collaborator spec §4.D describes: it
// accepts a wire-format payload and reports success or failure. Failures
// are reported but never retried, per spec §4.B's failure semantics.
type Egress interface {
	Send(ctx context.Context, payload []byte) error
}

// Archiver optionally mirrors expired records somewhere other than the
// wire (see internal/egress's ClickHouse sink). It is never required for
// correctness and its errors are logged, not propagated.
type Archiver interface {
	Archive(ctx context.Context, records []flow.Snapshot) error
}

// Scheduler is the cold-path worker from spec §4.B. It never observes
// packets directly and never touches the Flow Table's lookup structure
// except through Table.ScanExpired.
type Scheduler struct {
	table           *flow.Table
	template        *ipfix.Template
	egress          Egress
	archiver        Archiver
	pollPeriod      time.Duration
	maxMessageBytes int
	domainID        uint32

	seq uint64 // cumulative records emitted, RFC 7011 sequence number

	wake chan struct{} // external wakeup requested via Wake

	emitted  atomic.Uint64
	dropped  atomic.Uint64
	egressErrs atomic.Uint64

	wg   sync.WaitGroup
	done chan struct{}
}

// New creates a Scheduler. pollPeriod <= 0 uses DefaultPollPeriod.
// maxMessageBytes <= 0 uses ipfix.DefaultMaxMessageBytes.
func New(table *flow.Table, template *ipfix.Template, egress Egress, archiver Archiver, domainID uint32, pollPeriod time.Duration, maxMessageBytes int) *Scheduler {
	if pollPeriod <= 0 {
		pollPeriod = DefaultPollPeriod
	}
	return &Scheduler{
		table:           table,
		template:        template,
		egress:          egress,
		archiver:        archiver,
		pollPeriod:      pollPeriod,
		maxMessageBytes: maxMessageBytes,
		domainID:        domainID,
		wake:            make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
}

// Start launches the scheduler loop in its own goroutine.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Wake requests an out-of-band scan on the next loop iteration. If the
// wait didn't consume the full poll period because of this external
// event, the next wait is reset to the full period, per spec §4.B.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop signals the scheduler to perform one final scan with
// now = +infinity (evicting every remaining flow), emit whatever that
// produces, and exit. It blocks until the scheduler has done so, per
// spec §5's shutdown/cancellation rule.
func (s *Scheduler) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processTick(time.Now())
		case <-s.wake:
			s.processTick(time.Now())
			ticker.Reset(s.pollPeriod)
		case <-s.done:
			s.processFinal()
			return
		}
	}
}

// processTick performs one WAITING->PROCESSING->WAITING cycle: scan the
// table at now, then drain every expired snapshot through the encoder
// and egress collaborator.
func (s *Scheduler) processTick(now time.Time) {
	nowMs := now.UnixNano() / int64(time.Millisecond)
	expired := s.table.ScanExpired(nowMs)
	s.drain(expired, now)
}

// processFinal implements spec §5's shutdown rule: a last scan with
// now_ms effectively at +infinity evicts every remaining flow.
func (s *Scheduler) processFinal() {
	const positiveInfinity = int64(1) << 62
	expired := s.table.ScanExpired(positiveInfinity)
	s.drain(expired, time.Now())
}

// drain builds one or more NetFlow v10 messages from expired and hands
// each to the egress collaborator, freeing packet memory after hand-off.
// Encoder failures are fatal only to the batch that caused them and are
// logged; egress failures drop the message without retry. Both are
// counted, never surfaced to packet workers.
func (s *Scheduler) drain(expired []flow.Snapshot, now time.Time) {
	if len(expired) == 0 {
		return
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(context.Background(), expired); err != nil {
			log.Printf("expiry: archiver failed for %d records: %v", len(expired), err)
		}
	}

	for _, batch := range ipfix.SplitBatches(s.template, expired, s.maxMessageBytes) {
		seq := atomic.LoadUint64(&s.seq)
		payload, err := ipfix.Marshal(s.template, batch, uint32(seq), s.domainID, now)
		if err != nil {
			log.Printf("expiry: encoder error, dropping batch of %d records: %v", len(batch), err)
			s.dropped.Add(uint64(len(batch)))
			continue
		}

		if err := s.egress.Send(context.Background(), payload); err != nil {
			log.Printf("expiry: egress error, dropping batch of %d records: %v", len(batch), err)
			s.egressErrs.Add(1)
			s.dropped.Add(uint64(len(batch)))
			continue
		}

		atomic.AddUint64(&s.seq, uint64(len(batch)))
		s.emitted.Add(uint64(len(batch)))
	}
}

// Stats reports scheduler-level counters for internal/api.
type Stats struct {
	Emitted     uint64
	Dropped     uint64
	EgressErrs  uint64
	SequenceNum uint64
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Emitted:     s.emitted.Load(),
		Dropped:     s.dropped.Load(),
		EgressErrs:  s.egressErrs.Load(),
		SequenceNum: atomic.LoadUint64(&s.seq),
	}
}
