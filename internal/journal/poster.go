package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/id"
	"github.com/cuadra-dev/cuadra/internal/logger"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// Store persists the posting log. Append must commit all lines of the entry
// or none of them.
type Store interface {
	Append(ctx context.Context, tenant model.Tenant, entry model.JournalEntry) (string, error)
	MarkVoided(ctx context.Context, tenant model.Tenant, entryID string, at time.Time) error
}

// Poster validates and posts journal entries for one tenant. Appends are
// serialized so (date, insertion order) stays deterministic.
type Poster struct {
	mu       sync.Mutex
	tenant   model.Tenant
	accounts AccountChecker
	store    Store
	epsilon  decimal.Decimal
	now      func() time.Time

	entries []model.JournalEntry // in insertion order
	byID    map[string]int
	seqs    *id.Sequencer
	lastSeq int64
}

// Option configures a Poster.
type Option func(*Poster)

// WithEpsilon sets the balance tolerance.
func WithEpsilon(eps decimal.Decimal) Option {
	return func(p *Poster) { p.epsilon = eps }
}

// WithClock overrides the posting timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Poster) { p.now = now }
}

// NewPoster creates a Poster with an empty log. Use Load to hydrate it.
func NewPoster(tenant model.Tenant, accounts AccountChecker, store Store, opts ...Option) *Poster {
	p := &Poster{
		tenant:   tenant,
		accounts: accounts,
		store:    store,
		epsilon:  DefaultEpsilon,
		now:      time.Now,
		byID:     make(map[string]int),
		seqs:     id.NewSequencer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces the in-memory log with previously persisted entries.
func (p *Poster) Load(entries []model.JournalEntry) error {
	sorted := make([]model.JournalEntry, len(entries))
	for i, e := range entries {
		sorted[i] = e.Clone()
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = sorted
	p.byID = make(map[string]int, len(sorted))
	p.seqs = id.NewSequencer()
	p.lastSeq = 0
	for i, e := range sorted {
		if _, dup := p.byID[e.ID]; dup {
			return fmt.Errorf("loading journal: duplicate entry ID %s", e.ID)
		}
		p.byID[e.ID] = i
		p.seqs.Observe(e.ID)
		if e.Seq > p.lastSeq {
			p.lastSeq = e.Seq
		}
	}
	return nil
}

// Epsilon returns the balance tolerance in use.
func (p *Poster) Epsilon() decimal.Decimal {
	return p.epsilon
}

// Validate checks entry without posting it.
func (p *Poster) Validate(entry model.JournalEntry) error {
	return Validate(entry, p.accounts, p.epsilon)
}

// Post validates a draft entry and appends it to the log. On any error the
// log is unchanged.
func (p *Poster) Post(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	if entry.Status != "" && entry.Status != model.StatusDraft {
		return model.JournalEntry{}, &apperr.InvalidStateError{Entity: "entry", ID: entry.ID, State: string(entry.Status), Action: "post"}
	}
	if err := p.Validate(entry); err != nil {
		return model.JournalEntry{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.JournalEntry{}, err
	}

	posted := entry.Clone()
	posted.ID = p.seqs.Peek(entry.Date)
	posted.Seq = p.lastSeq + 1
	posted.Status = model.StatusPosted
	posted.PostedAt = p.now().UTC()

	// Validation passed; the commit is not cancellable from here on.
	storedID, err := p.store.Append(context.WithoutCancel(ctx), p.tenant, posted)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("appending entry: %w", err)
	}
	if storedID != "" {
		posted.ID = storedID
	}

	p.seqs.Observe(posted.ID)
	p.lastSeq = posted.Seq
	p.byID[posted.ID] = len(p.entries)
	p.entries = append(p.entries, posted)

	logger.Info(ctx, "entry posted", "entry_id", posted.ID, "seq", posted.Seq, "lines", len(posted.Lines))
	return posted.Clone(), nil
}

// Void flips a posted entry to voided. The entry stays in the log for audit
// but no longer counts toward aggregations.
func (p *Poster) Void(ctx context.Context, entryID string) (model.JournalEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.byID[entryID]
	if !ok {
		return model.JournalEntry{}, &apperr.NotFoundError{Entity: "entry", ID: entryID}
	}
	entry := p.entries[idx]
	if entry.Status != model.StatusPosted {
		return model.JournalEntry{}, &apperr.InvalidStateError{Entity: "entry", ID: entryID, State: string(entry.Status), Action: "void"}
	}

	at := p.now().UTC()
	if err := p.store.MarkVoided(ctx, p.tenant, entryID, at); err != nil {
		return model.JournalEntry{}, fmt.Errorf("voiding entry %s: %w", entryID, err)
	}
	entry.Status = model.StatusVoided
	entry.VoidedAt = at
	p.entries[idx] = entry

	logger.Info(ctx, "entry voided", "entry_id", entryID)
	return entry.Clone(), nil
}

// Reverse posts a new entry that mirrors a posted one with debits and credits
// swapped. The original stays posted.
func (p *Poster) Reverse(ctx context.Context, entryID string, date time.Time, concept string) (model.JournalEntry, error) {
	original, err := p.Get(entryID)
	if err != nil {
		return model.JournalEntry{}, err
	}
	if original.Status != model.StatusPosted {
		return model.JournalEntry{}, &apperr.InvalidStateError{Entity: "entry", ID: entryID, State: string(original.Status), Action: "reverse"}
	}
	if concept == "" {
		concept = "Reversión del asiento " + entryID
	}

	reversal := model.JournalEntry{
		Date:      date,
		Concept:   concept,
		Reference: "reverses:" + entryID,
		Status:    model.StatusDraft,
	}
	for _, l := range original.Lines {
		reversal.Lines = append(reversal.Lines, model.Line{AccountCode: l.AccountCode, Debit: l.Credit, Credit: l.Debit})
	}
	return p.Post(ctx, reversal)
}

// Get returns a copy of the entry with entryID.
func (p *Poster) Get(entryID string) (model.JournalEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.byID[entryID]
	if !ok {
		return model.JournalEntry{}, &apperr.NotFoundError{Entity: "entry", ID: entryID}
	}
	return p.entries[idx].Clone(), nil
}

// Entries returns a snapshot of the log in insertion order. Projections run
// over the snapshot and never observe a concurrent append.
func (p *Poster) Entries() []model.JournalEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.JournalEntry, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Clone()
	}
	return out
}
