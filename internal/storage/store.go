package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/ballpit/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	snapshotFile = "snapshot.json"
	configFile   = "config.yaml"
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

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Preset    string             `json:"preset"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Frames    int                `json:"frames"`
	Substeps  int                `json:"substeps"`
	Arena     dynamo.Bounds      `json:"arena"`
	Particles int                `json:"particles"`
	Metrics   map[string]float64 `json:"metrics"`
}

// FrameRecord is one row of frames.csv.
type FrameRecord struct {
	Frame          int     `csv:"frame"`
	Time           float64 `csv:"time"`
	Particles      int     `csv:"particles"`
	Contacts       int     `csv:"contacts"`
	WallHits       int     `csv:"wall_hits"`
	Oversized      int     `csv:"oversized"`
	MaxPenetration float64 `csv:"max_penetration"`
	KineticEnergy  float64 `csv:"kinetic_energy"`
}

func NewFrameRecord(s dynamo.FrameStats) FrameRecord {
	return FrameRecord{
		Frame:          s.Frame,
		Time:           s.Time,
		Particles:      s.Particles,
		Contacts:       s.Contacts,
		WallHits:       s.WallHits,
		Oversized:      s.Oversized,
		MaxPenetration: s.MaxPenetration,
		KineticEnergy:  s.KineticEnergy,
	}
}

// Begin creates a run directory and returns a recorder writing into it.
func (s *Store) Begin(name string, every int) (*Recorder, error) {
	runID := fmt.Sprintf("%s_%d", name, time.Now().UnixMilli())
	runDir := s.Dir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	f, err := os.Create(filepath.Join(runDir, framesFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", framesFile, err)
	}

	if every < 1 {
		every = 1
	}
	return &Recorder{id: runID, dir: runDir, file: f, every: every}, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]FrameRecord, error) {
	f, err := os.Open(filepath.Join(s.Dir(runID), framesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []FrameRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []FrameRecord{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", framesFile, err)
	}
	return records, nil
}

func (s *Store) LoadSnapshot(runID string) ([]dynamo.Body, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), snapshotFile))
	if err != nil {
		return nil, err
	}

	var bodies []dynamo.Body
	if err := json.Unmarshal(data, &bodies); err != nil {
		return nil, err
	}
	return bodies, nil
}

// ConfigPath is where a run's configuration was saved, if any.
func (s *Store) ConfigPath(runID string) string {
	return filepath.Join(s.Dir(runID), configFile)
}
