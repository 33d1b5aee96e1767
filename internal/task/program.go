package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/roach88/taskstore/internal/address"
	"github.com/roach88/taskstore/internal/identity"
	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
	"github.com/roach88/taskstore/internal/metrics"
)

// Options configures a Program. Zero values fall back to defaults.
type Options struct {
	ProgramID ir.Address
	Rent      ledger.Rent
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Program executes task instructions against a ledger.
//
// Thread-safety: Program holds no mutable state of its own; concurrency
// control belongs to the ledger's transactions.
type Program struct {
	id      ir.Address
	deriver address.Deriver
	ledger  ledger.Ledger
	auth    identity.Authorizer
	rent    ledger.Rent
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Handle refers to a newly created record.
type Handle struct {
	Address ir.Address `json:"address"`
	Bump    uint8      `json:"bump"`
	Deposit uint64     `json:"deposit"`
}

// Receipt summarizes an executed instruction.
type Receipt struct {
	RequestID   string         `json:"request_id"`
	Instruction ir.Instruction `json:"instruction"`
	Task        ir.Address     `json:"task"`

	// Lamports is the deposit taken (add_task) or refunded (remove_task).
	Lamports uint64 `json:"lamports"`
}

// New creates a Program over l, verifying signatures with auth.
func New(l ledger.Ledger, auth identity.Authorizer, opts Options) *Program {
	if opts.ProgramID.IsZero() {
		opts.ProgramID = ir.DefaultProgramID
	}
	if opts.Rent == (ledger.Rent{}) {
		opts.Rent = ledger.DefaultRent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Program{
		id:      opts.ProgramID,
		deriver: address.New(opts.ProgramID),
		ledger:  l,
		auth:    auth,
		rent:    opts.Rent,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// ID returns the program id.
func (p *Program) ID() ir.Address {
	return p.id
}

// Deposit returns the lamports a new record locks up.
func (p *Program) Deposit() uint64 {
	return p.rent.MinimumBalance(Space)
}

// Address returns the address and bump of the record for (owner, content).
func (p *Program) Address(owner ir.Identity, content string) (ir.Address, uint8) {
	return p.deriver.Derive(owner, content)
}

// Execute dispatches req to the instruction it names.
func (p *Program) Execute(ctx context.Context, req ir.SignedRequest) (Receipt, error) {
	receipt := Receipt{RequestID: req.ID, Instruction: req.Instruction, Task: req.Task}

	switch req.Instruction {
	case ir.InstructionAddTask:
		h, err := p.Create(ctx, req)
		if err != nil {
			return Receipt{}, err
		}
		receipt.Task = h.Address
		receipt.Lamports = h.Deposit
		return receipt, nil
	case ir.InstructionMarkTask:
		if err := p.Toggle(ctx, req); err != nil {
			return Receipt{}, err
		}
		return receipt, nil
	case ir.InstructionRemoveTask:
		refund, err := p.remove(ctx, req)
		if err != nil {
			return Receipt{}, err
		}
		receipt.Lamports = refund
		return receipt, nil
	default:
		err := newError(ErrCodeInvalidInstruction, ir.Address{}, "unknown instruction %q", req.Instruction)
		p.finish(req, ir.Address{}, time.Now(), err)
		return Receipt{}, err
	}
}

// Create runs add_task: it allocates a record at the address derived from
// the signer and content, debiting the signer for the deposit.
func (p *Program) Create(ctx context.Context, req ir.SignedRequest) (Handle, error) {
	start := time.Now()
	h, err := p.create(ctx, req)
	p.finish(req, h.Address, start, err)
	if err != nil {
		return Handle{}, err
	}
	p.metrics.DepositLocked(h.Deposit)
	return h, nil
}

func (p *Program) create(ctx context.Context, req ir.SignedRequest) (Handle, error) {
	if !utf8.ValidString(req.Content) {
		return Handle{}, newError(ErrCodeInvalidInstruction, ir.Address{}, "content is not valid UTF-8")
	}
	if err := p.authenticate(req, ir.InstructionAddTask); err != nil {
		return Handle{}, err
	}
	if err := validateContent(req.Content); err != nil {
		return Handle{}, &Error{
			Code:    ErrCodeContentTooLarge,
			Message: fmt.Sprintf("content is %d bytes, max %d", len(req.Content), MaxContentBytes),
			Err:     err,
		}
	}

	addr, bump := p.deriver.Derive(req.Signer, req.Content)
	data, err := Record{Owner: req.Signer, Content: req.Content}.MarshalBinary()
	if err != nil {
		return Handle{}, fmt.Errorf("encode record: %w", err)
	}
	deposit := p.Deposit()

	err = p.ledger.Update(ctx, func(tx ledger.Txn) error {
		return tx.Allocate(addr, p.id, req.Signer, data, deposit)
	})
	switch {
	case err == nil:
		return Handle{Address: addr, Bump: bump, Deposit: deposit}, nil
	case errors.Is(err, ledger.ErrAccountInUse):
		return Handle{}, newError(ErrCodeDuplicateRecord, addr, "a task with this content already exists")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return Handle{}, &Error{Code: ErrCodeInsufficientFunds, Task: addr, Message: "cannot cover deposit", Err: err}
	default:
		return Handle{}, fmt.Errorf("add task: %w", err)
	}
}

// Toggle runs mark_task: it flips the marked flag of the record at req.Task.
func (p *Program) Toggle(ctx context.Context, req ir.SignedRequest) error {
	start := time.Now()
	err := p.toggle(ctx, req)
	p.finish(req, req.Task, start, err)
	return err
}

func (p *Program) toggle(ctx context.Context, req ir.SignedRequest) error {
	if err := p.authenticate(req, ir.InstructionMarkTask); err != nil {
		return err
	}

	err := p.ledger.Update(ctx, func(tx ledger.Txn) error {
		rec, err := p.loadOwned(tx, req.Task, req.Signer)
		if err != nil {
			return err
		}
		rec.Marked = !rec.Marked
		data, err := rec.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		return tx.Write(req.Task, data)
	})
	if err != nil && CodeOf(err) == "" {
		return fmt.Errorf("mark task: %w", err)
	}
	return err
}

// Delete runs remove_task: it closes the record at req.Task and refunds its
// full deposit to the owner.
func (p *Program) Delete(ctx context.Context, req ir.SignedRequest) error {
	_, err := p.remove(ctx, req)
	return err
}

func (p *Program) remove(ctx context.Context, req ir.SignedRequest) (uint64, error) {
	start := time.Now()
	refund, err := p.closeTask(ctx, req)
	p.finish(req, req.Task, start, err)
	if err != nil {
		return 0, err
	}
	p.metrics.DepositRefunded(refund)
	return refund, nil
}

func (p *Program) closeTask(ctx context.Context, req ir.SignedRequest) (uint64, error) {
	if err := p.authenticate(req, ir.InstructionRemoveTask); err != nil {
		return 0, err
	}

	var refund uint64
	err := p.ledger.Update(ctx, func(tx ledger.Txn) error {
		rec, err := p.loadOwned(tx, req.Task, req.Signer)
		if err != nil {
			return err
		}
		refund, err = tx.Close(req.Task, rec.Owner)
		return err
	})
	if err != nil && CodeOf(err) == "" {
		return 0, fmt.Errorf("remove task: %w", err)
	}
	return refund, err
}

// Get returns the record at addr. It is the only read path: records are
// looked up by address, never listed.
func (p *Program) Get(ctx context.Context, addr ir.Address) (Record, error) {
	var rec Record
	err := p.ledger.View(ctx, func(tx ledger.Txn) error {
		var err error
		rec, err = p.load(tx, addr)
		return err
	})
	if err != nil && CodeOf(err) == "" {
		return Record{}, fmt.Errorf("get task: %w", err)
	}
	return rec, err
}

// authenticate checks that req targets this program and operation and is
// signed by its signer.
func (p *Program) authenticate(req ir.SignedRequest, want ir.Instruction) error {
	if req.Instruction != want {
		return newError(ErrCodeInvalidInstruction, req.Task, "expected %s, got %q", want, req.Instruction)
	}
	if req.ProgramID != p.id {
		return newError(ErrCodeInvalidInstruction, req.Task, "request addressed to program %s", req.ProgramID)
	}
	if !p.auth.Authorized(req.Signer, req) {
		return newError(ErrCodeInvalidSignature, req.Task, "request is not signed by %s", req.Signer)
	}
	return nil
}

// load reads and decodes the record at addr.
func (p *Program) load(tx ledger.Txn, addr ir.Address) (Record, error) {
	acct, err := tx.Account(addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return Record{}, newError(ErrCodeRecordNotFound, addr, "no task at address")
	}
	if err != nil {
		return Record{}, err
	}
	if acct.Program != p.id {
		return Record{}, newError(ErrCodeRecordNotFound, addr, "account belongs to program %s", acct.Program)
	}

	var rec Record
	if err := rec.UnmarshalBinary(acct.Data); err != nil {
		return Record{}, &Error{Code: ErrCodeCorruptRecord, Task: addr, Err: err}
	}
	return rec, nil
}

// loadOwned loads the record at addr and checks signer == record.Owner.
func (p *Program) loadOwned(tx ledger.Txn, addr ir.Address, signer ir.Identity) (Record, error) {
	rec, err := p.load(tx, addr)
	if err != nil {
		return Record{}, err
	}
	if rec.Owner != signer {
		return Record{}, newError(ErrCodeUnauthorized, addr, "signer %s is not the owner", signer)
	}
	return rec, nil
}

// instructionLabel maps instructions outside ValidInstructions to
// "unknown" so callers cannot mint metric series.
func instructionLabel(inst ir.Instruction) string {
	if slices.Contains(ir.ValidInstructions, inst) {
		return string(inst)
	}
	return "unknown"
}

// finish logs and records metrics for one instruction.
func (p *Program) finish(req ir.SignedRequest, task ir.Address, start time.Time, err error) {
	elapsed := time.Since(start)
	instruction := instructionLabel(req.Instruction)

	if err != nil {
		p.metrics.Observe(instruction, metricLabel(err), elapsed.Seconds())
		p.logger.Debug("instruction rejected",
			"request_id", req.ID,
			"instruction", instruction,
			"signer", req.Signer,
			"task", task,
			"error", err,
		)
		return
	}

	p.metrics.Observe(instruction, metrics.ResultOK, elapsed.Seconds())
	p.logger.Info("instruction committed",
		"request_id", req.ID,
		"instruction", instruction,
		"signer", req.Signer,
		"task", task,
		"duration", elapsed,
	)
}
