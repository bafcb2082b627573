// Package importer applies a JSONL batch of contracts and appointment
// requests to a ledger.
//
// Each line is a JSON object with a "kind" of "contract" or "appointment"
// plus the record fields. Lines that touch the same key run in file order;
// distinct keys run concurrently up to the worker limit.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/docket/pkg/ledger"
	"github.com/mesh-intelligence/docket/pkg/types"
)

// DefaultWorkers is the concurrency used when none is configured.
const DefaultWorkers = 4

// Record kinds.
const (
	KindContract    = "contract"
	KindAppointment = "appointment"
)

// maxLineSize bounds a single JSONL line.
const maxLineSize = 1024 * 1024

// Registry is the slice of the ledger the importer writes through.
type Registry interface {
	CreateContract(ctx context.Context, c types.Contract) error
	CreateAppointment(ctx context.Context, req ledger.AppointmentRequest) (uint64, error)
}

// Report summarizes one import run.
type Report struct {
	Contracts      int    `json:"contracts"`
	Appointments   int    `json:"appointments"`
	Conflicts      int    `json:"conflicts"`
	Malformed      int    `json:"malformed"`
	MalformedLines []int  `json:"malformed_lines,omitempty"`
	FeesBooked     uint64 `json:"fees_booked"`
}

// Importer applies batches to a Registry.
type Importer struct {
	registry Registry
	workers  int
	log      *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithWorkers sets the worker limit. Values below 1 keep the default.
func WithWorkers(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.workers = n
		}
	}
}

// WithLogger sets the importer logger.
func WithLogger(log *zap.Logger) Option {
	return func(im *Importer) {
		if log != nil {
			im.log = log
		}
	}
}

// New returns an Importer writing to registry.
func New(registry Registry, opts ...Option) *Importer {
	im := &Importer{registry: registry, workers: DefaultWorkers, log: zap.NewNop()}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// entry is one parsed line.
type entry struct {
	line        int
	kind        string
	contract    types.Contract
	appointment ledger.AppointmentRequest
}

func (e entry) groupKey() string {
	if e.kind == KindContract {
		return KindContract + "\x00" + e.contract.CaseNumber
	}
	return KindAppointment + "\x00" + e.appointment.ClientName
}

// Run reads r to the end and applies every well-formed line. Malformed lines
// and booking conflicts are counted in the report. Any other failure stops
// the run and is returned together with the partial report.
func (im *Importer) Run(ctx context.Context, r io.Reader) (Report, error) {
	var rep Report

	groups, order, err := im.parse(r, &rep)
	if err != nil {
		return rep, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)

	for _, key := range order {
		batch := groups[key]
		g.Go(func() error {
			for _, e := range batch {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := im.apply(gctx, e, &rep, &mu); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err = g.Wait()
	im.log.Info("import finished",
		zap.Int("contracts", rep.Contracts),
		zap.Int("appointments", rep.Appointments),
		zap.Int("conflicts", rep.Conflicts),
		zap.Int("malformed", rep.Malformed),
		zap.Uint64("fees_booked", rep.FeesBooked),
		zap.Error(err))
	return rep, err
}

// parse splits r into per-key batches, preserving file order inside each
// batch and first-seen order across batches.
func (im *Importer) parse(r io.Reader, rep *Report) (map[string][]entry, []string, error) {
	groups := make(map[string][]entry)
	var order []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		e, err := decodeLine(raw)
		if err != nil {
			im.log.Debug("skipping malformed line", zap.Int("line", line), zap.Error(err))
			rep.Malformed++
			rep.MalformedLines = append(rep.MalformedLines, line)
			continue
		}
		e.line = line
		key := e.groupKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading input at line %d: %w", line+1, err)
	}
	return groups, order, nil
}

// errUnknownKind marks a line whose kind is neither contract nor appointment.
var errUnknownKind = errors.New("unknown record kind")

func decodeLine(raw []byte) (entry, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return entry{}, err
	}
	e := entry{kind: head.Kind}
	switch head.Kind {
	case KindContract:
		if err := json.Unmarshal(raw, &e.contract); err != nil {
			return entry{}, err
		}
	case KindAppointment:
		if err := json.Unmarshal(raw, &e.appointment); err != nil {
			return entry{}, err
		}
	default:
		return entry{}, fmt.Errorf("%w %q", errUnknownKind, head.Kind)
	}
	return e, nil
}

func (im *Importer) apply(ctx context.Context, e entry, rep *Report, mu *sync.Mutex) error {
	switch e.kind {
	case KindContract:
		if err := im.registry.CreateContract(ctx, e.contract); err != nil {
			return fmt.Errorf("line %d: %w", e.line, err)
		}
		mu.Lock()
		rep.Contracts++
		mu.Unlock()
	case KindAppointment:
		fee, err := im.registry.CreateAppointment(ctx, e.appointment)
		if errors.Is(err, ledger.ErrBookingConflict) {
			mu.Lock()
			rep.Conflicts++
			mu.Unlock()
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", e.line, err)
		}
		mu.Lock()
		rep.Appointments++
		rep.FeesBooked = addSaturating(rep.FeesBooked, fee)
		mu.Unlock()
	}
	return nil
}

func addSaturating(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
