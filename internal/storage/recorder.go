package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
)

// Recorder streams frame statistics to frames.csv. It implements
// dynamo.Observer; the first write error is kept and returned by Finish.
type Recorder struct {
	id            string
	dir           string
	file          *os.File
	every         int
	headerWritten bool
	rows          int
	err           error
}

func (r *Recorder) ID() string { return r.id }

func (r *Recorder) Rows() int { return r.rows }

func (r *Recorder) OnStep(s dynamo.FrameStats) {
	if r.err != nil || s.Frame%r.every != 0 {
		return
	}
	r.err = r.write(NewFrameRecord(s))
}

func (r *Recorder) write(rec FrameRecord) error {
	records := []FrameRecord{rec}

	if !r.headerWritten {
		if err := gocsv.Marshal(records, r.file); err != nil {
			return fmt.Errorf("writing frames: %w", err)
		}
		r.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, r.file); err != nil {
			return fmt.Errorf("writing frames: %w", err)
		}
	}
	r.rows++
	return nil
}

// Finish writes metadata, the final snapshot and the configuration, then
// closes the frame log.
func (r *Recorder) Finish(meta RunMetadata, bodies []dynamo.Body, cfg *config.Config) (string, error) {
	closeErr := r.file.Close()
	if r.err != nil {
		return "", r.err
	}
	if closeErr != nil {
		return "", closeErr
	}

	meta.ID = r.id
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Particles = len(bodies)

	if err := writeJSON(filepath.Join(r.dir, metadataFile), meta); err != nil {
		return "", err
	}
	if bodies == nil {
		bodies = []dynamo.Body{}
	}
	if err := writeJSON(filepath.Join(r.dir, snapshotFile), bodies); err != nil {
		return "", err
	}
	if cfg != nil {
		if err := config.Save(filepath.Join(r.dir, configFile), cfg); err != nil {
			return "", fmt.Errorf("writing %s: %w", configFile, err)
		}
	}
	return r.id, nil
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
