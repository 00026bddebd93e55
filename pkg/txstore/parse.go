package txstore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/huimine/internal/logctx"
	"github.com/eunmann/huimine/pkg/logging"
	"github.com/rs/zerolog"
)

const (
	// maxLineBytes bounds a single transaction line.
	maxLineBytes = 16 * 1024 * 1024
	// maxLoggedTokens is how many discarded tokens are logged individually.
	maxLoggedTokens = 10
	// ctxCheckInterval is how many lines are parsed between cancellation checks.
	ctxCheckInterval = 4096
)

// Parse reads newline-delimited transactions from r.
//
// Malformed tokens, non-positive quantities or profits, and lines without
// any valid item are skipped and counted in the returned store's Stats.
// Only a read failure is returned, wrapped with ErrInputUnavailable.
func Parse(ctx context.Context, r io.Reader) (*Store, error) {
	start := time.Now()
	log := logctx.Phase(ctx, "parse")

	p := &parser{log: log}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for sc.Scan() {
		p.stats.LinesRead++
		if p.stats.LinesRead%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p.parseLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %w", ErrInputUnavailable, p.stats.LinesRead+1, err)
	}

	if skipped := p.stats.MalformedTokens + p.stats.NonPositiveTokens; skipped > maxLoggedTokens {
		log.Warn().
			Int64("malformed_tokens", p.stats.MalformedTokens).
			Int64("non_positive_tokens", p.stats.NonPositiveTokens).
			Int64("not_logged", skipped-maxLoggedTokens).
			Msg("discarded tokens")
	}

	store := &Store{txs: p.txs, stats: p.stats}

	logging.PhaseComplete(log, "parse", time.Since(start)).
		Count("lines_read", p.stats.LinesRead).
		Count("transactions_kept", p.stats.TransactionsKept).
		Count("empty_dropped", p.stats.EmptyDropped).
		Count("malformed_tokens", p.stats.MalformedTokens).
		Count("non_positive_tokens", p.stats.NonPositiveTokens).
		Count("duplicate_items", p.stats.DuplicateItems).
		Log("transactions loaded")

	return store, nil
}

type parser struct {
	log     zerolog.Logger
	txs     []Transaction
	stats   ParseStats
	logged  int
	entries []Entry
}

func (p *parser) parseLine(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		p.stats.BlankLines++
		return
	}

	p.entries = p.entries[:0]
	for _, tok := range fields {
		e, ok, positive := parseToken(tok)
		switch {
		case !ok:
			p.stats.MalformedTokens++
			p.warn(tok, "malformed token")
		case !positive:
			p.stats.NonPositiveTokens++
			p.warn(tok, "non-positive quantity or profit")
		default:
			p.entries = append(p.entries, e)
		}
	}

	if len(p.entries) == 0 {
		p.stats.EmptyDropped++
		return
	}

	tx, dups := NewTransaction(int32(len(p.txs)), p.entries)
	p.stats.DuplicateItems += int64(dups)
	p.stats.TransactionsKept++
	p.txs = append(p.txs, tx)
}

func (p *parser) warn(tok, msg string) {
	if p.logged >= maxLoggedTokens {
		return
	}
	p.logged++
	p.log.Warn().
		Int64("line", p.stats.LinesRead).
		Str("token", tok).
		Msg(msg)
}

// parseToken parses "itemId:quantity:profit". ok is false when the token
// does not have exactly three numeric fields; positive is false when the
// quantity or profit is not a finite positive number.
func parseToken(tok string) (e Entry, ok bool, positive bool) {
	id, rest, found := strings.Cut(tok, ":")
	if !found {
		return Entry{}, false, false
	}
	qty, profit, found := strings.Cut(rest, ":")
	if !found || strings.Contains(profit, ":") {
		return Entry{}, false, false
	}

	item, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return Entry{}, false, false
	}
	q, err := strconv.ParseInt(qty, 10, 64)
	if err != nil {
		return Entry{}, false, false
	}
	pr, err := strconv.ParseFloat(profit, 64)
	if err != nil {
		return Entry{}, false, false
	}

	e = Entry{Item: uint32(item), Quantity: q, Profit: pr}
	positive = q > 0 && pr > 0 && !math.IsInf(pr, 0)
	return e, true, positive
}
