// Package storage records attractor sessions to disk: one directory per
// session with a metadata file and a CSV of per-tick samples.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/nmlab/attractor/internal/attractor"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type SessionMetadata struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	Stiffness      float64   `json:"stiffness"`
	Damping        float64   `json:"damping"`
	SampleInterval float64   `json:"sample_interval"`
	Ticks          uint64    `json:"ticks"`
}

// Session is an open recording. It implements attractor.Observer; attach it
// with attractor.WithObserver. Recording buffers writes, but it still costs
// time on the tick path — intended for tuning sessions, not steady state.
type Session struct {
	store *Store
	meta  SessionMetadata
	dir   string

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var tickHeader = []string{"tick", "px", "py", "pz", "vx", "vy", "vz", "fx", "fy", "fz"}

// Begin opens a new session directory named after the start time.
func (s *Store) Begin(cfg *attractor.Configuration) (*Session, error) {
	now := time.Now()
	id := fmt.Sprintf("session_%d", now.Unix())
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	file, err := os.Create(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		return nil, err
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(tickHeader); err != nil {
		file.Close()
		return nil, err
	}

	return &Session{
		store: s,
		dir:   dir,
		meta: SessionMetadata{
			ID:             id,
			StartedAt:      now,
			Stiffness:      cfg.Stiffness,
			Damping:        cfg.Damping,
			SampleInterval: cfg.SampleInterval.Seconds(),
		},
		file:   file,
		writer: writer,
	}, nil
}

// OnTick implements attractor.Observer.
func (r *Session) OnTick(state attractor.EffectorState, cmd attractor.ForceCommand) {
	row := []string{
		strconv.FormatUint(cmd.Tick, 10),
		formatFloat(state.Position.X()), formatFloat(state.Position.Y()), formatFloat(state.Position.Z()),
		formatFloat(state.Velocity.X()), formatFloat(state.Velocity.Y()), formatFloat(state.Velocity.Z()),
		formatFloat(cmd.Force.X()), formatFloat(cmd.Force.Y()), formatFloat(cmd.Force.Z()),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return
	}
	_ = r.writer.Write(row)
	r.meta.Ticks++
}

// Close flushes the CSV and writes the session metadata.
func (r *Session) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return nil
	}

	r.writer.Flush()
	flushErr := r.writer.Error()
	if err := r.file.Close(); flushErr == nil {
		flushErr = err
	}
	r.writer = nil

	metaFile, err := os.Create(filepath.Join(r.dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.meta); err != nil {
		return err
	}
	return flushErr
}

// Sessions lists recorded session IDs, newest last.
func (s *Store) Sessions() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
