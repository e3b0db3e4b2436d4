// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive persists benchmark runs and named baselines in an
// embedded BadgerDB so later runs can be compared against earlier ones.
//
// Key layout:
//
//	run/<fingerprint>/<method>/<granularity>/<unix nanos>/<run id>  -> Record
//	baseline/<fingerprint>/<method>/<granularity>/<name>            -> Record
//
// The fingerprint is an xxhash of the instance, so the same instance file
// maps to the same history regardless of its path.
package archive

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/bench"
	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// DefaultBaseline is the baseline name used when none is given.
const DefaultBaseline = "base"

const (
	runPrefix      = "run/"
	baselinePrefix = "baseline/"
)

var (
	// ErrNotFound indicates no record exists for the requested key.
	ErrNotFound = errors.New("archive record not found")

	// ErrInvalidName indicates a baseline name that cannot be used in keys.
	ErrInvalidName = errors.New("invalid baseline name")
)

// Key identifies what was benchmarked.
type Key struct {
	Fingerprint uint64          `json:"fingerprint"`
	Method      knapsack.Method `json:"method"`
	Granularity int             `json:"granularity"`
}

// NewKey builds the key for benchmarking method on inst. Granularity is
// only meaningful for FPTAS and is stored as 0 for the other methods.
func NewKey(inst *knapsack.Instance, method knapsack.Method, granularity int) Key {
	if method != knapsack.MethodFPTAS {
		granularity = 0
	}
	return Key{Fingerprint: Fingerprint(inst), Method: method, Granularity: granularity}
}

// String renders the key as it appears inside storage keys.
func (k Key) String() string {
	return fmt.Sprintf("%016x/%s/%d", k.Fingerprint, k.Method, k.Granularity)
}

func parseKey(s string) (Key, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("malformed key %q", s)
	}
	fp, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return Key{}, fmt.Errorf("malformed fingerprint in %q: %w", s, err)
	}
	g, err := strconv.Atoi(parts[2])
	if err != nil {
		return Key{}, fmt.Errorf("malformed granularity in %q: %w", s, err)
	}
	return Key{Fingerprint: fp, Method: knapsack.Method(parts[1]), Granularity: g}, nil
}

// Fingerprint hashes the capacity and every (value, weight) pair of inst.
func Fingerprint(inst *knapsack.Instance) uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], inst.Capacity)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(inst.Len()))
	_, _ = h.Write(buf[:])
	for _, it := range inst.Items {
		binary.LittleEndian.PutUint32(buf[:4], it.Value)
		binary.LittleEndian.PutUint32(buf[4:], it.Weight)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Record is one archived benchmark run.
type Record struct {
	RunID     string          `json:"run_id"`
	Key       Key             `json:"key"`
	CreatedAt time.Time       `json:"created_at"`
	Report    *bench.Report   `json:"report"`
	Samples   []time.Duration `json:"samples_ns"`
}

// NewRecord wraps a report for storage, keeping its raw samples.
func NewRecord(key Key, report *bench.Report) *Record {
	return &Record{
		RunID:     uuid.NewString(),
		Key:       key,
		CreatedAt: time.Now().UTC(),
		Report:    report,
		Samples:   report.Samples,
	}
}

// BaselineEntry describes a stored baseline.
type BaselineEntry struct {
	Name      string    `json:"name"`
	Key       Key       `json:"key"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the benchmark archive.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *badger.DB
	gc     *gcRunner
	logger *slog.Logger
}

// Open opens the archive described by cfg.
//
// Description:
//
//	Opens (creating if needed) the database and starts value log GC when
//	cfg.GCInterval is set on a persistent archive.
//
// Outputs:
//
//	*Store - The archive. Call Close when done.
//	error - Non-nil if the database cannot be opened.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, logger: logger}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		gc, err := newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}
		s.gc = gc
		gc.start()
	}
	return s, nil
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// Save appends rec to the run history of rec.Key. A missing RunID or
// CreatedAt is filled in.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Report == nil {
		return errors.New("record and report must not be nil")
	}
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := withTxn(ctx, s.db, func(txn *badger.Txn) error {
		return txn.Set(runKey(rec), data)
	}); err != nil {
		return fmt.Errorf("save run %s: %w", rec.RunID, err)
	}

	s.logger.Debug("benchmark run archived",
		slog.String("run_id", rec.RunID),
		slog.String("key", rec.Key.String()),
		slog.Int("samples", len(rec.Samples)),
	)
	return nil
}

// SaveBaseline stores rec as baseline name for rec.Key, replacing any
// previous baseline of that name.
func (s *Store) SaveBaseline(ctx context.Context, name string, rec *Record) error {
	if err := validName(name); err != nil {
		return err
	}
	if rec == nil || rec.Report == nil {
		return errors.New("record and report must not be nil")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := withTxn(ctx, s.db, func(txn *badger.Txn) error {
		return txn.Set(baselineKey(rec.Key, name), data)
	}); err != nil {
		return fmt.Errorf("save baseline %s: %w", name, err)
	}

	s.logger.Info("baseline saved",
		slog.String("name", name),
		slog.String("key", rec.Key.String()),
		slog.String("run_id", rec.RunID),
	)
	return nil
}

// Baseline returns baseline name for key, or ErrNotFound.
func (s *Store) Baseline(ctx context.Context, key Key, name string) (*Record, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	var rec *Record
	err := withReadTxn(ctx, s.db, func(txn *badger.Txn) error {
		item, err := txn.Get(baselineKey(key, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("baseline %q for %s: %w", name, key, ErrNotFound)
		}
		if err != nil {
			return err
		}
		rec, err = decodeItem(item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteBaseline removes baseline name for key. Missing baselines are
// reported as ErrNotFound.
func (s *Store) DeleteBaseline(ctx context.Context, key Key, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	return withTxn(ctx, s.db, func(txn *badger.Txn) error {
		k := baselineKey(key, name)
		if _, err := txn.Get(k); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("baseline %q for %s: %w", name, key, ErrNotFound)
		} else if err != nil {
			return err
		}
		return txn.Delete(k)
	})
}

// History returns up to limit runs for key, newest first. A limit of 0
// returns all runs.
func (s *Store) History(ctx context.Context, key Key, limit int) ([]*Record, error) {
	prefix := []byte(runPrefix + key.String() + "/")
	var out []*Record
	err := withReadTxn(ctx, s.db, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the largest key under the prefix.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			rec, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			out = append(out, rec)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", key, err)
	}
	return out, nil
}

// Baselines lists every stored baseline in key order.
func (s *Store) Baselines(ctx context.Context) ([]BaselineEntry, error) {
	prefix := []byte(baselinePrefix)
	var out []BaselineEntry
	err := withReadTxn(ctx, s.db, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			rest := strings.TrimPrefix(string(item.Key()), baselinePrefix)
			cut := strings.LastIndexByte(rest, '/')
			if cut < 0 {
				return fmt.Errorf("malformed baseline key %q", item.Key())
			}
			key, err := parseKey(rest[:cut])
			if err != nil {
				return err
			}
			rec, err := decodeItem(item)
			if err != nil {
				return err
			}
			out = append(out, BaselineEntry{
				Name:      rest[cut+1:],
				Key:       key,
				RunID:     rec.RunID,
				CreatedAt: rec.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	return out, nil
}

func runKey(rec *Record) []byte {
	// Zero-padded so byte order matches time order.
	return []byte(fmt.Sprintf("%s%s/%020d/%s", runPrefix, rec.Key, rec.CreatedAt.UnixNano(), rec.RunID))
}

func baselineKey(key Key, name string) []byte {
	return []byte(baselinePrefix + key.String() + "/" + name)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

func decodeItem(item *badger.Item) (*Record, error) {
	var rec Record
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
	}
	if rec.Report != nil {
		rec.Report.Samples = rec.Samples
	}
	return &rec, nil
}

// Compare compares report against baseline name for key.
//
// Description:
//
//	Loads the baseline and runs bench.Compare on its raw samples and the
//	report's samples, with the bootstrap seeded from cfg.Seed.
//
// Outputs:
//
//	*bench.Comparison - The change estimate.
//	*Record - The baseline compared against.
//	error - ErrNotFound when no baseline exists, or a bench error.
func (s *Store) Compare(ctx context.Context, key Key, name string, report *bench.Report, cfg bench.Config) (*bench.Comparison, *Record, error) {
	base, err := s.Baseline(ctx, key, name)
	if err != nil {
		return nil, nil, err
	}
	cmp, err := bench.Compare(base.Samples, report.Samples, cfg.Stats(), bench.DefaultNoiseThreshold, bench.NewRand(cfg.Seed))
	if err != nil {
		return nil, base, fmt.Errorf("compare with baseline %q: %w", name, err)
	}
	s.logger.Info("compared with baseline",
		slog.String("name", name),
		slog.String("key", key.String()),
		slog.Float64("change", cmp.Change.PointEstimate),
		slog.Float64("p_value", cmp.PValue),
		slog.String("verdict", string(cmp.Verdict)),
	)
	return cmp, base, nil
}
